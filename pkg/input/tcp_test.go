package input

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-go-golems/logship/pkg/codec"
	"github.com/go-go-golems/logship/pkg/pipeline"
	"github.com/go-go-golems/logship/pkg/value"
	"github.com/stretchr/testify/require"
)

func serveConn(t *testing.T, payload string) chan pipeline.Record {
	t.Helper()

	client, server := net.Pipe()
	out := make(chan pipeline.Record, 16)
	in := NewTCP("127.0.0.1:0", codec.JSON{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		in.serve(context.Background(), server, out)
	}()
	go func() {
		_, _ = client.Write([]byte(payload))
		_ = client.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not finish")
	}
	close(out)
	return out
}

func TestServeDecodesBackToBackDocuments(t *testing.T) {
	out := serveConn(t, `{"message":"a"}{"message":"b"}`)

	var got []pipeline.Record
	for record := range out {
		got = append(got, record)
	}
	require.Len(t, got, 2)
	require.True(t, got[0].Equal(value.Object(map[string]value.Value{"message": value.String("a")})))
	require.True(t, got[1].Equal(value.Object(map[string]value.Value{"message": value.String("b")})))
}

func TestServeDropsNonObjectDocuments(t *testing.T) {
	out := serveConn(t, `42 {"message":"kept"} [true]`)

	var got []pipeline.Record
	for record := range out {
		got = append(got, record)
	}
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(value.Object(map[string]value.Value{"message": value.String("kept")})))
}

func TestServeClosesConnectionOnDecodeError(t *testing.T) {
	// The document after the malformed one never makes it through.
	out := serveConn(t, `{"message":"first"} {broken} {"message":"second"}`)

	var got []pipeline.Record
	for record := range out {
		got = append(got, record)
	}
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(value.Object(map[string]value.Value{"message": value.String("first")})))
}

func TestRunRejectsUnbindableAddress(t *testing.T) {
	in := NewTCP("127.0.0.1:999999", codec.JSON{})
	err := in.Run(context.Background(), make(chan pipeline.Record))
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := NewTCP("127.0.0.1:0", codec.JSON{})

	done := make(chan error, 1)
	go func() { done <- in.Run(ctx, make(chan pipeline.Record)) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
