package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", Clone(ErrForbidden, "no capability"))
	assert.True(t, Is(err, ErrForbidden))
	assert.False(t, Is(err, ErrUnauthorized))
	assert.False(t, Is(nil, ErrForbidden))
}

func TestWithDetailsCopies(t *testing.T) {
	detailed := WithDetails(ErrValidation, map[string]string{"allow_registration": "Enter a valid boolean."})
	assert.Equal(t, "Enter a valid boolean.", detailed.Details["allow_registration"])
	assert.Nil(t, ErrValidation.Details)
}
