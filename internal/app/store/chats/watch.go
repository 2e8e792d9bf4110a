package chatstore

import (
	"context"
	"time"

	"github.com/civicapp/civichub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Watch follows a thread. The returned channel first carries the current
// ordered message list and then the full list again after every change.
// Delivery is latest-wins: a slow reader only sees the newest list.
//
// The change stream is opened before the initial list is read, so an insert
// landing between the two still raises an event. The channel is closed once
// ctx ends; the change stream (or poller) behind it is released at that
// point. Deployments without change streams are polled at the store's poll
// interval.
func (s *Store) Watch(ctx context.Context, chatID string) (<-chan []models.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":        "insert",
			"fullDocument.chat_id": chatID,
		}}},
	}
	stream, streamErr := s.messages.Watch(ctx, pipeline, options.ChangeStream())

	initial, err := s.ListMessages(ctx, chatID)
	if err != nil {
		if streamErr == nil {
			_ = stream.Close(context.Background())
		}
		return nil, err
	}
	if s.afterInitialList != nil {
		s.afterInitialList()
	}

	out := make(chan []models.Message, 1)
	out <- initial
	last := signatureOf(initial)

	go func() {
		defer close(out)

		if streamErr == nil {
			last = s.follow(ctx, stream, chatID, last, out)
			_ = stream.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
		}
		s.pollLoop(ctx, chatID, last, out)
	}()

	return out, nil
}

// follow pushes a fresh list for every insert event until the stream fails
// or ctx ends. It returns the signature of the last list delivered.
func (s *Store) follow(ctx context.Context, stream *mongo.ChangeStream, chatID string, last signature, out chan []models.Message) signature {
	for stream.Next(ctx) {
		msgs, err := s.ListMessages(ctx, chatID)
		if err != nil {
			if ctx.Err() != nil {
				return last
			}
			continue
		}
		if sig := signatureOf(msgs); sig != last {
			last = sig
			deliver(ctx, out, msgs)
		}
	}
	return last
}

func (s *Store) pollLoop(ctx context.Context, chatID string, last signature, out chan []models.Message) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, err := s.ListMessages(ctx, chatID)
		if err != nil {
			continue
		}
		if sig := signatureOf(msgs); sig != last {
			last = sig
			deliver(ctx, out, msgs)
		}
	}
}

// signature identifies an append-only thread's state.
type signature struct {
	n      int
	lastID string
}

func signatureOf(msgs []models.Message) signature {
	if len(msgs) == 0 {
		return signature{}
	}
	return signature{n: len(msgs), lastID: msgs[len(msgs)-1].ID}
}

// deliver replaces any unread list in out with msgs.
func deliver(ctx context.Context, out chan []models.Message, msgs []models.Message) {
	select {
	case <-out:
	default:
	}
	select {
	case out <- msgs:
	case <-ctx.Done():
	}
}
