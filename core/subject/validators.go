package subject

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-curriculum/core"
)

var (
	subjCodeTag   = "subjcode"
	subjCodeText  = "code must be 2 to 12 uppercase letters, digits or dashes"
	subjCodeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,11}$`)

	titleMaxSim         = .9
	titleTooSimilarText = "a topic with a similar title already exists"
)

// InitValidators registers the subject validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjCodeTag, subjCodeValidation)
	core.RegisterCustomTranslation(validate, translator, subjCodeTag, subjCodeText)
}

func cleanCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(core.CleanString(code), " ", "-"))
}

// subjCodeValidation checks that a subject code is short, uppercase and dash separated, e.g. MATH-101
func subjCodeValidation(fl validator.FieldLevel) bool {
	return subjCodeRegex.MatchString(fl.Field().String())
}

// titleSimilarity is the case-insensitive character match ratio of two titles, in [0, 1].
func titleSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
