package estimator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/nutricalc/internal/prompts"
)

var estimateTemplate = prompts.MustGet("estimator.json", "estimate-macros")

// BuildPrompt renders the batch prompt, enumerating descriptions from 1
func BuildPrompt(descriptions []string, fields FieldNames) (string, error) {
	if err := fields.Validate(); err != nil {
		return "", err
	}

	var items strings.Builder
	for i, d := range descriptions {
		fmt.Fprintf(&items, "%d. %s\n", i+1, d)
	}

	prompt, err := prompts.FormatStrict(estimateTemplate, map[string]string{
		"Count":        strconv.Itoa(len(descriptions)),
		"Items":        strings.TrimRight(items.String(), "\n"),
		"KcalField":    fields.Kcal,
		"ProteinField": fields.Protein,
		"CarbField":    fields.Carb,
		"FatField":     fields.Fat,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render estimator prompt: %w", err)
	}
	return prompt, nil
}
