package vault

import (
	"context"
	"sync"
	"time"

	"github.com/mhlabs/tokenvault/pkg/common/logger"
)

// BatchProcessor runs the bulk deidentify/reidentify protocol. Calls within
// a batch are independent, so they are dispatched concurrently; replies land
// in an index-addressed slice so the reply order always matches the call
// order. A lookup miss is a nil reply, never an error; only malformed input
// or a storage failure fails the batch as a whole.
type BatchProcessor struct {
	store *TokenStore
}

func NewBatchProcessor(store *TokenStore) *BatchProcessor {
	return &BatchProcessor{store: store}
}

// Process dispatches on the batch action. An unrecognized action yields an
// absent response rather than an error.
func (b *BatchProcessor) Process(ctx context.Context, req RemoteFunctionRequest) (*RemoteFunctionResponse, error) {
	switch req.UserDefinedContext.Action {
	case ActionDeidentify:
		return b.deidentify(ctx, req)
	case ActionReidentify:
		return b.reidentify(ctx, req)
	default:
		logger.Log.WithFields(map[string]interface{}{
			"request_id": req.RequestID,
			"action":     req.UserDefinedContext.Action,
		}).Warn("Unsupported batch action")
		return nil, nil
	}
}

func (b *BatchProcessor) deidentify(ctx context.Context, req RemoteFunctionRequest) (*RemoteFunctionResponse, error) {
	tokenType := req.UserDefinedContext.TokenType
	if tokenType == "" {
		tokenType = TypeString
	}

	replies := make([]interface{}, len(req.Calls))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, call := range req.Calls {
		wg.Add(1)
		go func(i int, call TokenCall) {
			defer wg.Done()
			tc := TokenCreate{
				// The key covers exactly the elements the call carried.
				PK:         DerivePK(call.components()...),
				Identifier: call.Identifier,
				Identity:   call.Subject,
				Value:      call.Value,
				Field:      call.Field,
				Type:       tokenType,
				Method:     MethodFormatPreserving,
				CreatedAt:  time.Now().UTC(),
			}
			token, err := b.store.GetOrCreate(ctx, tc)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			replies[i] = token.Token
		}(i, call)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &RemoteFunctionResponse{Replies: replies}, nil
}

func (b *BatchProcessor) reidentify(ctx context.Context, req RemoteFunctionRequest) (*RemoteFunctionResponse, error) {
	replies := make([]interface{}, len(req.Calls))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, call := range req.Calls {
		wg.Add(1)
		go func(i int, call TokenCall) {
			defer wg.Done()
			token, err := b.store.Find(ctx, TokenFind{
				Identifier:    call.Identifier,
				IdentityToken: call.Subject,
				Token:         call.Value,
				Field:         call.Field,
			})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if token == nil {
				// unknown token: null reply, the rest of the batch proceeds
				return
			}
			replies[i] = token.Value
		}(i, call)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &RemoteFunctionResponse{Replies: replies}, nil
}
