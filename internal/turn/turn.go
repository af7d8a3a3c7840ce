// Package turn runs the embedded TURN/STUN server the browsers fall back to
// when a direct peer connection cannot be established.
package turn

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pion/turn/v3"
)

type Server struct {
	server   *turn.Server
	username string
	password string

	logger *slog.Logger
}

type Credentials struct {
	Username string
	Password string
}

func Initialize(port int, realm string, logger *slog.Logger) (*Server, error) {
	udpListener, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP listener: %w", err)
	}

	// Per-process credentials; clients fetch them over the authenticated
	// /api/turn-config endpoint.
	username := "chatwire"
	password := generatePassword()

	relayIP := relayAddress(logger)
	logger.Info("turn relay address selected", "ip", relayIP.String())

	s, err := turn.NewServer(turn.ServerConfig{
		Realm: realm,
		AuthHandler: func(u string, realm string, srcAddr net.Addr) ([]byte, bool) {
			if u == username {
				return turn.GenerateAuthKey(u, realm, password), true
			}
			return nil, false
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: udpListener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: relayIP,
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TURN server: %w", err)
	}

	return &Server{server: s, username: username, password: password, logger: logger}, nil
}

func (s *Server) GetCredentials() Credentials {
	return Credentials{Username: s.username, Password: s.password}
}

func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func generatePassword() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}

// relayAddress picks the address relayed media is advertised on:
// PUBLIC_IP env override, then an external probe, then the local interface.
func relayAddress(logger *slog.Logger) net.IP {
	if v := strings.TrimSpace(os.Getenv("PUBLIC_IP")); v != "" {
		if ip := net.ParseIP(v); ip != nil {
			return ip
		}
		logger.Warn("ignoring invalid PUBLIC_IP", "value", v)
	}

	if ip := probePublicIP(logger); ip != nil {
		return ip
	}
	return localIP(logger)
}

func probePublicIP(logger *slog.Logger) net.IP {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("https://api.ipify.org")
	if err != nil {
		logger.Warn("public ip probe failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("public ip probe failed", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	return net.ParseIP(strings.TrimSpace(string(body)))
}

func localIP(logger *slog.Logger) net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		logger.Warn("failed to determine local ip", "error", err)
		return net.ParseIP("127.0.0.1")
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP
}
