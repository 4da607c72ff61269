package wallet

import (
	"errors"
	"sync"
)

var ErrWalletNotFound = errors.New("wallet not found")

type notFoundError struct {
	name string
}

func (e *notFoundError) Error() string {
	return e.name + " wallet not found."
}

func (e *notFoundError) Unwrap() error {
	return ErrWalletNotFound
}

// Connector plays the role of the browser wallet extension registry: wallets
// are registered under a name and connected on request.
type Connector struct {
	mtx       sync.RWMutex
	wallets   map[string]Wallet
	connected map[string]bool
}

func NewConnector() *Connector {
	return &Connector{
		wallets:   make(map[string]Wallet),
		connected: make(map[string]bool),
	}
}

func (c *Connector) Register(name string, w Wallet) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.wallets[name] = w
}

func (c *Connector) Connect(name string) (Wallet, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	w, ok := c.wallets[name]
	if !ok {
		return nil, &notFoundError{name: name}
	}
	c.connected[name] = true
	return w, nil
}

func (c *Connector) Disconnect(name string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.connected, name)
}

func (c *Connector) Connected(name string) bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.connected[name]
}
