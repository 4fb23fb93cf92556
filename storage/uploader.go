package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores deposit-proof screenshots. The returned key is what
// ends up in the transaction's proof_ref column.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	PublicURL(key string) string
}

// ProofKey builds the object key for a player's deposit proof. The uuid keeps
// repeated uploads from overwriting each other.
func ProofKey(playerID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("deposit-proofs/%s/%s%s", playerID, uuid.NewString(), ext)
}
