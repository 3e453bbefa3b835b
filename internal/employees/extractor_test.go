package employees

import (
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	headers := normalize.Transactions([]normalize.RawRow{
		{normalize.ColTransactionID: "T1", normalize.ColStaffName: "Maria  Lopez"},
		{normalize.ColTransactionID: "T2", normalize.ColStaffName: "maria lopez"},
		{normalize.ColTransactionID: "T3", normalize.ColStaffName: ""},
	})
	items := normalize.Items([]normalize.RawRow{
		{normalize.ColTransactionID: "T1", normalize.ColEmployee: "Maria Lopez"},
		{normalize.ColTransactionID: "T3", normalize.ColEmployee: "Dee"},
		{normalize.ColTransactionID: "T3", normalize.ColEmployee: "Dee"},
	})

	got := Extract(headers, items)

	require.Len(t, got, 2)
	assert.Equal(t, "Maria Lopez", got[0].Name)
	assert.Equal(t, "Maria", got[0].FirstName)
	assert.Equal(t, "Lopez", got[0].LastName)
	assert.Equal(t, 2, got[0].TransactionCount)
	assert.Equal(t, "maria lopez", got[0].NaturalKey())

	assert.Equal(t, "Dee", got[1].FirstName)
	assert.Empty(t, got[1].LastName)
	assert.Equal(t, 1, got[1].TransactionCount)
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, Extract(nil, nil))
}
