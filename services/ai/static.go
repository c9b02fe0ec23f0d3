package aisvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/grupka/grupka/core/child"
)

// StaticGenerator is used when no AI provider is configured.
// It echoes the name from the prompt into a fixed template.
type StaticGenerator struct{}

var _ child.BioGenerator = StaticGenerator{}

func (StaticGenerator) GenerateBio(_ context.Context, prompt string) (string, error) {
	name := "This little one"
	for _, line := range strings.Split(prompt, "\n") {
		if n, ok := strings.CutPrefix(line, "Name: "); ok && n != "" {
			name = n
			break
		}
	}
	return fmt.Sprintf("%s is a cheerful member of the group who loves playing with friends.", name), nil
}
