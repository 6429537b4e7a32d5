package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEnvelope(t *testing.T) {
	raw, err := json.Marshal(Error("Stock insuficiente para Pisco"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"Stock insuficiente para Pisco"}`, string(raw))
}

func TestPaginatedTotalPages(t *testing.T) {
	assert.Equal(t, 3, Paginated(nil, 41, 1, 20).TotalPages)
	assert.Equal(t, 2, Paginated(nil, 40, 1, 20).TotalPages)
	assert.Equal(t, 0, Paginated(nil, 0, 1, 20).TotalPages)
}
