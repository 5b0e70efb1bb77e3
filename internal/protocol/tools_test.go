package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringTools(t *testing.T) {
	tests := []struct {
		name    string
		tool    StringTool
		input   string
		extra   []string
		want    string
		wantErr bool
	}{
		{"trim", toolDoNothing, "  abc ", nil, "abc", false},
		{"upper", toolNumberToUpperAlpha, "26", []string{"TRUE"}, "Z", false},
		{"lower", toolNumberToUpperAlpha, " 1 ", []string{" false "}, "a", false},
		{"alpha zero", toolNumberToUpperAlpha, "0", []string{"true"}, "", true},
		{"alpha no flag", toolNumberToUpperAlpha, "3", nil, "", true},
		{"alpha bad flag", toolNumberToUpperAlpha, "3", []string{"yes"}, "", true},
		{"alpha not a number", toolNumberToUpperAlpha, "3a", []string{"true"}, "", true},
		{"pad", toolNumberToFixedDec, "42", []string{"5"}, "00042", false},
		{"pad negative", toolNumberToFixedDec, "-42", []string{"4"}, "-0042", false},
		{"pad plus", toolNumberToFixedDec, "+7", []string{"3"}, "+007", false},
		{"wide enough", toolNumberToFixedDec, "12345", []string{"3"}, "12345", false},
		{"pad bad digits", toolNumberToFixedDec, "4.2", []string{"4"}, "", true},
		{"pad bare sign", toolNumberToFixedDec, "-", []string{"4"}, "", true},
		{"pad bad width", toolNumberToFixedDec, "1", []string{"-1"}, "", true},
		{"map", toolGetStringMapValue, "LOW", []string{"low<10>", "high < 90 >"}, "10", false},
		{"map spaced value", toolGetStringMapValue, "high", []string{"low<10>", "high < 90 >"}, "90", false},
		{"map miss", toolGetStringMapValue, "mid", []string{"low<10>"}, "", true},
		{"map skips malformed", toolGetStringMapValue, "a", []string{"a", "a<>", "a<1>"}, "1", false},
		{"add", toolDigitalCharacterCalculation, "5", []string{"3", "add"}, "8", false},
		{"subtract", toolDigitalCharacterCalculation, "5", []string{"8", "Subtract"}, "-3", false},
		{"divide", toolDigitalCharacterCalculation, "-7", []string{"2", "divide"}, "-3", false},
		{"modulo", toolDigitalCharacterCalculation, "7", []string{"4", "MODULO"}, "3", false},
		{"divide by zero", toolDigitalCharacterCalculation, "7", []string{"0", "divide"}, "", true},
		{"modulo by zero", toolDigitalCharacterCalculation, "7", []string{"0", "modulo"}, "", true},
		{"overflow", toolDigitalCharacterCalculation, "9223372036854775807", []string{"1", "add"}, "", true},
		{"bad operator", toolDigitalCharacterCalculation, "1", []string{"1", "pow"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tool(tt.input, tt.extra)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToolInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteConversion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		extra     []string
		bigEndian bool
		want      []byte
		wantErr   bool
	}{
		{"default increment", "", []string{"1", "0x10", "5"}, true, []byte{0x15}, false},
		{"input overrides", "1", []string{"2", "0x0100", "5"}, true, []byte{0x01, 0x01}, false},
		{"little endian", "0", []string{"4", "01020304", "0"}, false, []byte{0x04, 0x03, 0x02, 0x01}, false},
		{"empty base is zero", "255", []string{"1", "", "0"}, true, []byte{0xFF}, false},
		{"eight bytes", "1", []string{"8", "0", "0"}, true, []byte{0, 0, 0, 0, 0, 0, 0, 1}, false},
		{"width too big", "1", []string{"9", "0", "0"}, true, nil, true},
		{"width zero", "1", []string{"0", "0", "0"}, true, nil, true},
		{"base too big", "0", []string{"1", "100", "0"}, true, nil, true},
		{"increment too big", "256", []string{"1", "0", "0"}, true, nil, true},
		{"negative increment", "-1", []string{"1", "0", "0"}, true, nil, true},
		{"missing extras", "1", []string{"1", "0"}, true, nil, true},
		{"max eight bytes", "0", []string{"8", "FFFFFFFFFFFFFFFF", "0"}, true, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, false},
		{"eight byte overflow", "1", []string{"8", "FFFFFFFFFFFFFFFF", "0"}, true, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toolByteConversion(tt.input, tt.extra, tt.bigEndian)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToolInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetRawData(t *testing.T) {
	got, err := toolGetRawData("ignored", []string{" 0x0A 0b 1 "}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xA0, 0xB1}, got)

	_, err = toolGetRawData("", []string{"zz"}, false)
	assert.ErrorIs(t, err, ErrInvalidToolInput)

	_, err = toolGetRawData("", nil, false)
	assert.ErrorIs(t, err, ErrInvalidToolInput)
}

func TestGetStringMapValueToBytes(t *testing.T) {
	extra := []string{"red<0x0102>", "green<0304>"}

	got, err := toolGetStringMapValueToBytes("Red", extra, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, got)

	got, err = toolGetStringMapValueToBytes("green", extra, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x03}, got)

	_, err = toolGetStringMapValueToBytes("blue", extra, true)
	assert.ErrorIs(t, err, ErrInvalidToolInput)
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source  string
		want    string
		wantErr bool
	}{
		{"param_value", "v", false},
		{" Channel_Num ", "3", false},
		{"channel_index", "2", false},
		{"", "", false},
		{"EMPTY", "", false},
		{"instance", "", true},
	}
	for _, tt := range tests {
		got, err := resolveSource(tt.source, "v", 2)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownSource, tt.source)
			continue
		}
		require.NoError(t, err, tt.source)
		assert.Equal(t, tt.want, got, tt.source)
	}
}
