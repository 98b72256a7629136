package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationOptionType_String(t *testing.T) {
	require.Equal(t, "", BoolConfigurationOption.String())
	require.Equal(t, "int", IntConfigurationOption.String())
	require.Equal(t, "string", StringConfigurationOption.String())
	require.Equal(t, "float", FloatConfigurationOption.String())
	require.Equal(t, "string", StringsConfigurationOption.String())
	require.Equal(t, "path", PathConfigurationOption.String())
}

func TestConfigurationOptionType_StringPanicsOnUnknownValue(t *testing.T) {
	require.Panics(t, func() { _ = ConfigurationOptionType(99).String() })
}

func TestConfigurationOption_FormatDefault_String(t *testing.T) {
	opt := ConfigurationOption{Type: StringConfigurationOption, Default: "self-describing"}
	require.Equal(t, `"self-describing"`, opt.FormatDefault())
}

func TestConfigurationOption_FormatDefault_Strings(t *testing.T) {
	opt := ConfigurationOption{Type: StringsConfigurationOption, Default: []string{"a", "b"}}
	require.Equal(t, `"a,b"`, opt.FormatDefault())
}

func TestConfigurationOption_FormatDefault_NonStringFallsThroughToSprint(t *testing.T) {
	opt := ConfigurationOption{Type: IntConfigurationOption, Default: 5}
	require.Equal(t, "5", opt.FormatDefault())

	opt = ConfigurationOption{Type: BoolConfigurationOption, Default: true}
	require.Equal(t, "true", opt.FormatDefault())
}

func TestConfigurationOption_FormatDefault_StringsWithWrongDefaultType(t *testing.T) {
	opt := ConfigurationOption{Type: StringsConfigurationOption, Default: 42}
	require.Equal(t, "42", opt.FormatDefault())
}
