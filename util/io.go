package util

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	lserr "lineserver/internal/errors"
)

// MessagePipe is one end of a message-oriented connection.  Recv
// returns io.EOF once the peer has closed the conversation normally.
type MessagePipe interface {
	Send(msg string) error
	Recv() (string, error)
	Close() error
}

// halfCloser is implemented by pipes that can announce "no more
// messages from this side" while still receiving.
type halfCloser interface {
	CloseSend() error
}

// RelayLines sends every line read from r as one message over p, and
// writes every message received from p to w followed by a newline.  It
// returns once the peer stops sending or the context is cancelled.
//
// When r is exhausted the sending side is half-closed (if supported)
// so the peer can finish replying before it closes the conversation.
func RelayLines(ctx context.Context, p MessagePipe, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// network → writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			msg, err := p.Recv()
			if err != nil {
				errCh <- err
				return
			}
			if _, err := fmt.Fprintln(w, msg); err != nil {
				errCh <- err
				return
			}
		}
	}()

	// reader → network.  Not waited on: a blocked read of a terminal
	// must not hold up the return once the peer is gone.
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if err := p.Send(sc.Text()); err != nil {
				errCh <- err
				cancel()
				return
			}
		}
		err := sc.Err()
		if hc, ok := p.(halfCloser); ok && err == nil {
			err = hc.CloseSend()
		}
		errCh <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	p.Close() // unblock any pending receive
	wg.Wait()

	for {
		select {
		case err := <-errCh:
			if err != nil && !isHarmless(err) {
				return err
			}
		default:
			return nil
		}
	}
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	return err == nil || lserr.IsClosed(err)
}
