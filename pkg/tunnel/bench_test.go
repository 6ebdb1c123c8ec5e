package tunnel_test

import (
	"net"
	"testing"

	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

// Run with: go test -bench=. -benchmem ./pkg/tunnel/

func BenchmarkHandshakeInMemory(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch, state, err := tunnel.GenerateClientHello()
		if err != nil {
			b.Fatal(err)
		}
		sh, _, err := tunnel.HandleClientHello(ch)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := tunnel.HandleServerHello(sh, state); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHandshakeOverPipe(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, s := net.Pipe()
		errc := make(chan error, 1)
		go func() {
			_, err := tunnel.ResponderHandshake(s)
			errc <- err
		}()
		if _, err := tunnel.InitiatorHandshake(c); err != nil {
			b.Fatal(err)
		}
		if err := <-errc; err != nil {
			b.Fatal(err)
		}
		_ = c.Close()
		_ = s.Close()
	}
}

func BenchmarkChannelEncrypt1KB(b *testing.B) { benchmarkChannelEncrypt(b, 1024) }
func BenchmarkChannelEncrypt8KB(b *testing.B) { benchmarkChannelEncrypt(b, 8192) }

func benchmarkChannelEncrypt(b *testing.B, size int) {
	client, _ := benchChannels(b)
	plaintext := make([]byte, size)

	b.SetBytes(int64(size))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := client.Encrypt(plaintext); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChannelRoundTrip1KB(b *testing.B) {
	client, server := benchChannels(b)
	plaintext := make([]byte, 1024)

	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		record, err := client.Encrypt(plaintext)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := server.Decrypt(record); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAppDataCodec1KB(b *testing.B) {
	client, _ := benchChannels(b)
	record, _ := client.Encrypt(make([]byte, 1024))
	codec := protocol.NewCodec()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.DecodeAppData(codec.EncodeAppData(record)); err != nil {
			b.Fatal(err)
		}
	}
}

func benchChannels(b *testing.B) (client, server *tunnel.SecureChannel) {
	b.Helper()
	ch, state, err := tunnel.GenerateClientHello()
	if err != nil {
		b.Fatal(err)
	}
	sh, serverSession, err := tunnel.HandleClientHello(ch)
	if err != nil {
		b.Fatal(err)
	}
	clientSession, err := tunnel.HandleServerHello(sh, state)
	if err != nil {
		b.Fatal(err)
	}
	if client, err = clientSession.NewChannel(); err != nil {
		b.Fatal(err)
	}
	if server, err = serverSession.NewChannel(); err != nil {
		b.Fatal(err)
	}
	return client, server
}
