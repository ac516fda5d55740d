package results

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock for Interface, shared by packages that
// exercise the settlement pass without a live provider.
type MockClient struct {
	mock.Mock
}

var _ Interface = (*MockClient)(nil)

func (m *MockClient) FetchResults(ctx context.Context, sport string, daysBack int) ([]GameResult, error) {
	args := m.Called(ctx, sport, daysBack)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]GameResult), args.Error(1)
}
