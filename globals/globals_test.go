package globals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockAndDateTags(t *testing.T) {
	type slot struct {
		Date string `json:"date" validate:"yyyymmdd"`
		Time string `json:"time" validate:"hhmm"`
	}
	assert.NoError(t, Validate.Struct(slot{Date: "2025-03-01", Time: "19:30"}))
	assert.Error(t, Validate.Struct(slot{Date: "2025/03/01", Time: "19:30"}))
	assert.Error(t, Validate.Struct(slot{Date: "2025-03-01", Time: "24:00"}))
	assert.Error(t, Validate.Struct(slot{Date: "2025-03-01", Time: "7:30"}))
}
