package questions

import (
	"strings"

	hashids "github.com/speps/go-hashids/v2"
)

// CodeGenerator produces the short public reference codes students read out
// to support ("SORU-8K2M" instead of a raw row id).
type CodeGenerator struct {
	h *hashids.HashID
}

func NewCodeGenerator(salt string) (*CodeGenerator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 6
	data.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &CodeGenerator{h: h}, nil
}

func (g *CodeGenerator) Generate(questionID int64) (string, error) {
	code, err := g.h.EncodeInt64([]int64{questionID})
	if err != nil {
		return "", err
	}
	return "SORU-" + strings.ToUpper(code), nil
}
