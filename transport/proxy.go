package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// ErrInvalidProxy reports a partially specified proxy.
var ErrInvalidProxy = errors.New("invalid proxy")

// Proxy is an optional (address, username, password) triple. When Address
// is set, Username and Password are mandatory.
type Proxy struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled reports whether a proxy address is configured.
func (p *Proxy) Enabled() bool {
	return p != nil && strings.TrimSpace(p.Address) != ""
}

// Validate rejects partial specifications. A nil proxy is valid.
func (p *Proxy) Validate() error {
	if p == nil {
		return nil
	}
	if !p.Enabled() {
		if p.Username != "" || p.Password != "" {
			return fmt.Errorf("%w: credentials given without an address", ErrInvalidProxy)
		}
		return nil
	}
	if p.Username == "" || p.Password == "" {
		return fmt.Errorf("%w: address %s requires both username and password", ErrInvalidProxy, p.Address)
	}
	if _, err := p.URL(); err != nil {
		return err
	}
	return nil
}

// URL returns the proxy address with credentials attached. Addresses
// without a scheme are treated as http proxies.
func (p *Proxy) URL() (*url.URL, error) {
	addr := strings.TrimSpace(p.Address)
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: address %q has no host", ErrInvalidProxy, p.Address)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	u.User = url.UserPassword(p.Username, p.Password)
	return u, nil
}

func (p *Proxy) key() string {
	if !p.Enabled() {
		return ""
	}
	return p.Address + "\x00" + p.Username + "\x00" + p.Password
}

// transportPool reuses one *http.Transport per proxy so connections are
// kept alive across calls.
type transportPool struct {
	mu         sync.Mutex
	transports map[string]*http.Transport
}

func (tp *transportPool) get(p *Proxy) (*http.Transport, error) {
	key := p.key()

	tp.mu.Lock()
	defer tp.mu.Unlock()
	if t, ok := tp.transports[key]; ok {
		return t, nil
	}
	t, err := newTransport(p)
	if err != nil {
		return nil, err
	}
	if tp.transports == nil {
		tp.transports = make(map[string]*http.Transport)
	}
	tp.transports[key] = t
	return t, nil
}

func (tp *transportPool) closeIdle() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	for _, t := range tp.transports {
		t.CloseIdleConnections()
	}
}

func newTransport(p *Proxy) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if !p.Enabled() {
		return transport, nil
	}

	u, err := p.URL()
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "socks5", "socks5h":
		auth := &proxy.Auth{User: p.Username, Password: p.Password}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		transport.Proxy = http.ProxyURL(u)
	}
	return transport, nil
}
