package validation

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestMessagesPerField(t *testing.T) {
	type input struct {
		Username string `validate:"required,min=3"`
		Role     string `validate:"oneof=admin editor viewer"`
	}

	err := validator.New().Struct(input{Username: "", Role: "owner"})
	require.Error(t, err)

	messages := Messages(err)
	require.Equal(t, "this field is required", messages["username"])
	require.Equal(t, "must be one of: admin editor viewer", messages["role"])
}

func TestMessagesNonValidatorError(t *testing.T) {
	messages := Messages(fmt.Errorf("unexpected EOF"))
	require.Equal(t, "invalid request body", messages["request"])
}
