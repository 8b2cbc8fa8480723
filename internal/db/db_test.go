package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "fact_case", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dim_patient"}, []string{"patient_key", "sex", "age"}).WillReturnResult(3)

	rows := [][]any{{1, "M", 52}, {2, "F", 34}, {3, nil, 61}}
	n, err := CopyFrom(context.Background(), mock, "dim_patient", []string{"patient_key", "sex", "age"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"fact_case"}, []string{"case_key"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{1}}
	_, err = CopyFrom(context.Background(), mock, "fact_case", []string{"case_key"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO fact_case")
	assert.NoError(t, mock.ExpectationsWereMet())
}
