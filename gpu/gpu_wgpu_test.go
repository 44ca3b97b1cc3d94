//go:build !nogpu

package gpu

import (
	"strings"
	"testing"

	"github.com/gogpu/naga"
)

func TestDisplaceShaderCompilation(t *testing.T) {
	if displaceShaderWGSL == "" {
		t.Fatal("displace shader source is empty")
	}

	spirvBytes, err := naga.Compile(displaceShaderWGSL)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("failed to compile displace shader: %v", err)
	}

	if len(spirvBytes) < 4 {
		t.Fatal("SPIR-V too short")
	}
	words, err := compileWGSL(displaceShaderWGSL)
	if err != nil {
		t.Fatal(err)
	}
	if words[0] != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", words[0])
	}
}
