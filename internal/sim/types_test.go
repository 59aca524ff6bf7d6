package sim

import "testing"

func TestSample_Clone(t *testing.T) {
	s := Sample{RPM: []float64{1, 2}, Angle: []float64{10, 20}, Enabled: []bool{true, false}}

	c := s.Clone()
	c.RPM[0] = 99
	c.Enabled[1] = true

	if s.RPM[0] == 99 || s.Enabled[1] {
		t.Error("Clone did not create independent copy")
	}
}

func TestConfig_Steps(t *testing.T) {
	tests := []struct {
		cfg  Config
		want int
	}{
		{Config{Dt: 0.1, Duration: 1.0}, 10},
		{Config{Dt: 1.0 / 60, Duration: 5.0}, 300},
		{Config{Dt: 0.3, Duration: 1.0}, 3},
	}

	for _, tt := range tests {
		if got := tt.cfg.Steps(); got != tt.want {
			t.Errorf("Steps(%+v) = %d, want %d", tt.cfg, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("DefaultConfig has invalid Dt")
	}
	if cfg.Duration <= 0 {
		t.Error("DefaultConfig has invalid Duration")
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}
