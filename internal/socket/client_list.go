package socket

import (
	"container/list"
	"sync"
)

// clientList is a concurrency-safe collection of the currently connected
// clients, used to gate the accept loop on the connection limit and to let
// the admin console find a client by player id.
type clientList struct {
	clients *list.List
	sync.RWMutex
}

func newClientList() *clientList {
	return &clientList{clients: list.New()}
}

func (cl *clientList) add(c *Client) {
	cl.Lock()
	cl.clients.PushBack(c)
	cl.Unlock()
}

func (cl *clientList) remove(c *Client) {
	cl.Lock()
	defer cl.Unlock()

	for e := cl.clients.Front(); e != nil; e = e.Next() {
		if e.Value.(*Client) == c {
			cl.clients.Remove(e)
			break
		}
	}
}

func (cl *clientList) len() int {
	cl.RLock()
	defer cl.RUnlock()
	return cl.clients.Len()
}

// findByPlayer returns the connected client bound to playerID, or nil.
func (cl *clientList) findByPlayer(playerID string) *Client {
	cl.RLock()
	defer cl.RUnlock()

	for e := cl.clients.Front(); e != nil; e = e.Next() {
		c := e.Value.(*Client)
		if c.PlayerID() == playerID {
			return c
		}
	}
	return nil
}

// snapshot copies the current client set for iteration outside the lock.
func (cl *clientList) snapshot() []*Client {
	cl.RLock()
	defer cl.RUnlock()

	clients := make([]*Client, 0, cl.clients.Len())
	for e := cl.clients.Front(); e != nil; e = e.Next() {
		clients = append(clients, e.Value.(*Client))
	}
	return clients
}
