package procfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStat(t *testing.T) {
	tests := []struct {
		name string
		data string
		want stat
	}{
		{
			name: "plain",
			data: "1234 (bash) S 1000 1234 1234 34816 5678 4194304 1000 0 0 0 10 5 0 0 20 0 1 0 98765 10000000 500 18446744073709551615\n",
			want: stat{PID: 1234, PPID: 1000, Comm: "bash", StartTicks: 98765},
		},
		{
			name: "name with spaces and parens",
			data: "42 (Web Content (x)) R 7 42 42 0 -1 4194560 0 0 0 0 0 0 0 0 20 0 30 0 555 0 0 0",
			want: stat{PID: 42, PPID: 7, Comm: "Web Content (x)", StartTicks: 555},
		},
		{
			name: "empty name",
			data: "9 () S 2 0 0 0 -1 0 0 0 0 0 0 0 0 0 20 0 1 0 12 0 0",
			want: stat{PID: 9, PPID: 2, Comm: "", StartTicks: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStat([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatMalformed(t *testing.T) {
	inputs := []string{
		"",
		"1234 bash S 1",
		"(bash) S 1 2 3",
		"abc (bash) S 1 1 1 0 -1 0 0 0 0 0 0 0 0 0 20 0 1 0 5",
		"1 (init) S 0 1 1",
		"1 (init) S x 1 1 0 -1 0 0 0 0 0 0 0 0 0 20 0 1 0 5",
		"1 (init) S 0 1 1 0 -1 0 0 0 0 0 0 0 0 0 20 0 1 0 soon",
	}

	for _, in := range inputs {
		_, err := parseStat([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestStartNanos(t *testing.T) {
	boot := uint64(1_700_000_000) * uint64(time.Second)

	assert.Equal(t, boot, startNanos(boot, 0))
	assert.Equal(t, boot+uint64(1500*time.Millisecond), startNanos(boot, 150))
}
