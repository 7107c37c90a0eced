package classfile

import "testing"

func TestNewVersion(t *testing.T) {
	tests := []struct {
		name    string
		major   uint16
		minor   uint16
		wantErr bool
	}{
		{"java8", 52, 0, false},
		{"java21", 65, 0, false},
		{"preview java21", 65, PreviewMinorVersion, false},
		{"nonzero minor on modern major", 65, 3, true},
		{"below minimum", 44, 0, true},
		{"above maximum", 70, 0, true},
		{"old major nonzero minor ok", 45, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVersion(tt.major, tt.minor)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVersion(%d,%d) error = %v, wantErr %v", tt.major, tt.minor, err, tt.wantErr)
			}
			if err == nil && (v.Major() != tt.major || v.Minor() != tt.minor) {
				t.Fatalf("got major=%d minor=%d, want %d/%d", v.Major(), v.Minor(), tt.major, tt.minor)
			}
		})
	}
}

func TestVersionJavaAndSupports(t *testing.T) {
	v8, _ := NewVersion(52, 0)
	v21, _ := NewVersion(65, 0)
	if v8.Java() != 8 {
		t.Fatalf("Java() = %d, want 8", v8.Java())
	}
	if v21.Java() != 21 {
		t.Fatalf("Java() = %d, want 21", v21.Java())
	}
	if !v21.Supports(v8) {
		t.Fatal("v21 should support v8's requirements")
	}
	if v8.Supports(v21) {
		t.Fatal("v8 should not support v21's requirements")
	}
}

func TestVersionIsPreview(t *testing.T) {
	v, err := NewVersion(65, PreviewMinorVersion)
	if err != nil {
		t.Fatalf("NewVersion: %v", err)
	}
	if !v.IsPreview() {
		t.Fatal("expected preview version")
	}
	stable, _ := NewVersion(65, 0)
	if stable.IsPreview() {
		t.Fatal("expected non-preview version")
	}
}

func TestVersionString(t *testing.T) {
	v, _ := NewVersion(52, 0)
	if got, want := v.String(), "Java 8"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
