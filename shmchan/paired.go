//go:build linux

package shmchan

import "github.com/joeycumines/corert"

// Pair is a duplex connection built from two independently named regions,
// one per direction, following the "two channels with swapped names"
// convention for point-to-point full-duplex communication over a
// fundamentally one-writer-one-reader primitive.
type Pair struct {
	Send *Channel
	Recv *Channel

	sendRegion *Region
	recvRegion *Region
}

// OpenPair opens (or creates) the regions named sendName and recvName,
// wraps each as a Channel registered with mux, and returns the pair. The
// peer on the other end must open the same two names with sendName and
// recvName swapped, so that each side's Send maps to the other's Recv.
func OpenPair(sched *corert.Scheduler, mux *Multiplexer, sendName, recvName string, capacity int) (*Pair, error) {
	sendRegion, err := OpenRegion(sendName, capacity)
	if err != nil {
		return nil, err
	}
	recvRegion, err := OpenRegion(recvName, capacity)
	if err != nil {
		_ = sendRegion.Close()
		return nil, err
	}

	sendRing, err := NewRing(sendRegion.Bytes())
	if err != nil {
		_ = sendRegion.Close()
		_ = recvRegion.Close()
		return nil, err
	}
	recvRing, err := NewRing(recvRegion.Bytes())
	if err != nil {
		_ = sendRegion.Close()
		_ = recvRegion.Close()
		return nil, err
	}

	return &Pair{
		Send:       NewChannel(sendName, sendRing, sched, mux),
		Recv:       NewChannel(recvName, recvRing, sched, mux),
		sendRegion: sendRegion,
		recvRegion: recvRegion,
	}, nil
}

// Close closes both channels and unmaps both backing regions. It does not
// Unlink either name; callers that own the regions outright should call
// Unlink on each explicitly once no peer can still attach.
func (p *Pair) Close() error {
	_ = p.Send.Close()
	_ = p.Recv.Close()

	err := p.sendRegion.Close()
	if recvErr := p.recvRegion.Close(); err == nil {
		err = recvErr
	}
	return err
}
