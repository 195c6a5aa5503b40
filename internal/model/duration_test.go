package model

import "testing"

func TestDurationSeconds(t *testing.T) {
	cases := []struct {
		iso  string
		want int64
	}{
		{"PT45M", 2700},
		{"PT1H", 3600},
		{"PT1H30M", 5400},
		{"P1D", 86400},
		{"P1DT12H", 129600},
		{"PT3601S", 3601},
		{"PT0.5H", 1800},
		{"P1W", 604800},
	}
	for _, tc := range cases {
		got, err := DurationSeconds(tc.iso)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.iso, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.iso, got, tc.want)
		}
	}
}

func TestDurationSeconds_Invalid(t *testing.T) {
	for _, iso := range []string{"", "P", "PT", "45M", "PTXM", "1H"} {
		if _, err := DurationSeconds(iso); err == nil {
			t.Fatalf("%q: expected error", iso)
		}
	}
}
