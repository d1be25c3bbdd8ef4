package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "500", FormatNumber(500))
	require.Equal(t, "3 500", FormatNumber(3500))
	require.Equal(t, "52 500", FormatNumber(52500))
	require.Equal(t, "1 200 000", FormatNumber(1200000))
	// дробная часть не группируется
	require.Equal(t, "52 500.5", FormatNumber(52500.5))
	require.Equal(t, "-3 500", FormatNumber(-3500))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "50к", FormatAmount(50000))
	require.Equal(t, "52.5к", FormatAmount(52500))
	require.Equal(t, "1к", FormatAmount(1000))
	require.Equal(t, "1.5к", FormatAmount(1500))
	// меньше тысячи - как есть
	require.Equal(t, "999", FormatAmount(999))
	require.Equal(t, "0", FormatAmount(0))
}
