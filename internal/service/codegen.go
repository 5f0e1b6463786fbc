package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"pickfast/internal/domain"
)

// MaxCodeAttempts bounds the collision retries of GenerateUniqueCode.
const MaxCodeAttempts = 64

// CodeGenerator draws group codes uniformly from domain.CodeAlphabet.
type CodeGenerator struct {
	Rand        io.Reader // crypto/rand.Reader when nil
	MaxAttempts int       // MaxCodeAttempts when <= 0
}

var alphabetSize = big.NewInt(int64(len(domain.CodeAlphabet)))

// GenerateUniqueCode draws codes until exists reports one as free. exists is
// expected to run inside the transaction that inserts the group.
func (g *CodeGenerator) GenerateUniqueCode(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = MaxCodeAttempts
	}
	for i := 0; i < attempts; i++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check group code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrCodeGenerationExhausted, attempts)
}

func (g *CodeGenerator) draw() (string, error) {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, domain.CodeLength)
	for i := range b {
		n, err := rand.Int(r, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("draw group code: %w", err)
		}
		b[i] = domain.CodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
