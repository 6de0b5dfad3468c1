package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataprovider/internal/contract"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"type": "vnd.x"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("UNKNOWN_RESOURCE", "no route", map[string]string{"address": "x"}))
	assert.Contains(t, buf.String(), "Error [UNKNOWN_RESOURCE]: no route")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("UNKNOWN_RESOURCE", "no route", map[string]string{"address": "x"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_FailContractError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := contract.NewError(contract.ErrCodeUnsupportedOperation, "content://a/images/k", "insert on item")
	err := formatter.Fail(fmt.Errorf("insert: %w", cause))

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.ErrorIs(t, err, cause)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNSUPPORTED_OPERATION", resp.Error.Code)
	assert.Equal(t, "insert on item", resp.Error.Message)
	assert.Equal(t, map[string]any{"address": "content://a/images/k"}, resp.Error.Details)
}

func TestOutputFormatter_FailOtherError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(errors.New("disk on fire"))
	assert.True(t, IsReported(err))
	assert.Contains(t, buf.String(), "Error [INTERNAL]: disk on fire")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}

	formatter.VerboseLog("opening %s", "db")
	assert.Empty(t, diag.String())

	formatter.Verbose = true
	formatter.VerboseLog("opening %s", "db")
	assert.Equal(t, "opening db\n", diag.String())
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.False(t, IsReported(WrapExitError(ExitFailure, "x", errors.New("y"))))
}
