package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestImportRequestValidation(t *testing.T) {
	t.Run("accepts a zero-amount record", func(t *testing.T) {
		req := models.ImportTransactionsRequest{
			Transactions: []models.ImportTransaction{
				{Description: "Balance adjustment", Amount: 0},
			},
		}

		assert.NoError(t, validate.Struct(req))
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		req := models.ImportTransactionsRequest{}

		assert.Error(t, validate.Struct(req))
	})
}
