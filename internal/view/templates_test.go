package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/message"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestExecuteNilEngine(t *testing.T) {
	var engine *Engine
	err := engine.Execute(&bytes.Buffer{}, "report.html", TemplateData{})
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	p := message.NewPrinter(Locale)
	got := FormatMoney(p, decimal.RequireFromString("1234567.5"))
	assert.True(t, strings.HasPrefix(got, "$"))
	assert.Contains(t, got, "234")
	assert.Contains(t, got, "567")

	zero := FormatMoney(p, decimal.Zero)
	assert.Equal(t, "$0", zero)
}

func TestFormatQuantityRoundsToTwoPlaces(t *testing.T) {
	p := message.NewPrinter(Locale)
	got := FormatQuantity(p, decimal.RequireFromString("3.14159"))
	require.NotEmpty(t, got)
	assert.Contains(t, got, "14")
	assert.NotContains(t, got, "159")
}
