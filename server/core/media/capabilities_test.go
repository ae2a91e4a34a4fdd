package media

import (
	"context"
	"errors"
	"testing"
)

func TestCapabilityProber_Probe(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   Capabilities
	}{
		{
			name:   "reconnect supported",
			output: "http AVOptions:\n  -reconnect         <boolean>    .D.......",
			want:   Capabilities{Available: true, Reconnect: true},
		},
		{
			name:   "reconnect unsupported",
			output: "Main options:\n  -i <file>",
			want:   Capabilities{Available: true, Reconnect: false},
		},
		{
			name: "binary missing",
			err:  errors.New("exec: \"ffmpeg\": executable file not found in $PATH"),
			want: Capabilities{},
		},
		{
			name:   "only similarly named options",
			output: "http AVOptions:\n  -reconnect_streamed <boolean>    .D.......\n  -reconnect_delay_max <int>",
			want:   Capabilities{Available: true, Reconnect: false},
		},
		{
			name:   "non-zero exit with help text",
			output: "  -reconnect         <boolean>",
			err:    errors.New("exit status 1"),
			want:   Capabilities{Available: true, Reconnect: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := NewCapabilityProber(nil, "")
			var gotArgs []string
			prober.run = func(ctx context.Context, program string, args ...string) ([]byte, error) {
				gotArgs = args
				return []byte(tt.output), tt.err
			}

			got := prober.Probe(context.Background())
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "protocol=http" {
				t.Errorf("Expected http protocol help query, got args %v", gotArgs)
			}
		})
	}
}
