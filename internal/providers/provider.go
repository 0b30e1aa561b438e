package providers

import (
	"context"

	"github.com/brandlens/brandlens-workflows/internal/providers/common"
)

// AIProvider is implemented by every provider adapter. Invoke failures are
// always a *common.ProviderError so the retry layer can read status codes and
// rate-limit headers.
type AIProvider interface {
	Invoke(ctx context.Context, promptText string, opts common.InvokeOptions) (*common.RawResponse, error)
	GetProviderName() string
	SupportsWebSearch() bool
}
