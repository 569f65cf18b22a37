package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := StockReservation("stock_not_reserved", "no free unit at %s", "WH/IT Pool")
	wrapped := fmt.Errorf("assign asset 7: %w", base)

	assert.Equal(t, KindStockReservation, KindOf(wrapped))
	assert.True(t, Retryable(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
	assert.Equal(t, "no free unit at WH/IT Pool", base.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("tag_taken", "tag taken"), http.StatusBadRequest},
		{"policy", Policy("asset_retired", "retired"), http.StatusUnprocessableEntity},
		{"not_found", NotFound("asset_not_found", "missing"), http.StatusNotFound},
		{"configuration", Configuration("no_internal_type", "missing type"), http.StatusInternalServerError},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Validation("tag_taken", "asset tag must be unique").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.False(t, Retryable(err))
	assert.Equal(t, "asset tag must be unique: duplicate key", err.Error())
}
