package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/model"
)

func TestCreateUser(t *testing.T) {
	assert.NoError(t, CreateUser("ana_b", "ana@example.com", "Ana"))

	for name, err := range map[string]error{
		"short username": CreateUser("an", "ana@example.com", ""),
		"upper case":     CreateUser("Ana", "ana@example.com", ""),
		"missing email":  CreateUser("ana", "", ""),
		"bad email":      CreateUser("ana", "ana@", ""),
		"long name":      CreateUser("ana", "ana@example.com", strings.Repeat("x", 101)),
	} {
		assert.True(t, model.IsValidationError(err), name)
	}
}

func TestDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	d, err := Date("2024-05-10", tokyo)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, tokyo), d)

	d, err = Date("2024-05-10T23:30:00Z", tokyo)
	require.NoError(t, err)
	assert.Equal(t, 23, d.Hour())

	_, err = Date("10/05/2024", tokyo)
	assert.True(t, model.IsValidationError(err))
	_, err = Date("", tokyo)
	assert.True(t, model.IsValidationError(err))
}

func TestMediaAndText(t *testing.T) {
	assert.NoError(t, Media("image", "https://cdn.example.com/a.png"))
	assert.Error(t, Media("", ""))
	assert.Error(t, Media("spreadsheet", ""))
	assert.Error(t, EntryText(strings.Repeat("a", 9001)))
	assert.Error(t, ClassifyText(""))
	assert.NoError(t, ClassifyText("a long quiet day"))
}
