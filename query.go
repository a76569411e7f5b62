package agentwire

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

// Ask runs one prompt and iterates the turn's messages, including the
// final ResultMessage. Setup failures are yielded inline as the first
// item, so callers handle every error in one loop:
//
//	for msg, err := range agentwire.Ask(ctx, "What is 2+2?", opts) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // handle msg
//	}
//
// Per-line decode failures are yielded and iteration continues;
// transport failures stop iteration after being yielded.
func Ask(ctx context.Context, prompt string, opts *Options) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		client := NewClient(opts)

		defer func() {
			_ = client.Close()
		}()

		if err := client.Connect(ctx); err != nil {
			yield(nil, err)

			return
		}

		if err := client.Send(ctx, prompt, ""); err != nil {
			yield(nil, err)

			return
		}

		for msg, err := range client.Responses(ctx) {
			if !yield(msg, err) {
				return
			}
		}
	}
}

// AskStream feeds a lazy sequence of prompts to the agent while
// iterating all resulting messages. The writer runs concurrently with
// the reader; input is half-closed once the sequence is exhausted, so
// the agent ends the output stream on its own. Iteration stops when
// the connection ends.
func AskStream(ctx context.Context, prompts iter.Seq[string], opts *Options) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		client := NewClient(opts)

		defer func() {
			_ = client.Close()
		}()

		if err := client.Connect(ctx); err != nil {
			yield(nil, err)

			return
		}

		group, sendCtx := errgroup.WithContext(ctx)

		group.Go(func() error {
			defer func() {
				_ = client.EndInput()
			}()

			for prompt := range prompts {
				if err := client.Send(sendCtx, prompt, ""); err != nil {
					return err
				}
			}

			return nil
		})

		for msg, err := range client.Messages(ctx) {
			if !yield(msg, err) {
				break
			}
		}

		if err := group.Wait(); err != nil {
			yield(nil, err)
		}
	}
}
