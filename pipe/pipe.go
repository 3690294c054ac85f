// Package pipe moves display snapshots from the fetch loop to the
// render loop through a single-slot mailbox. Only the freshest snapshot
// matters, so a publish into a full slot evicts the stale one and
// neither side ever blocks.
package pipe

import "github.com/mta-display/subway-sign/model"

// Pipe is a single-slot, drop-oldest snapshot channel. One producer,
// one consumer.
type Pipe struct {
	slot chan model.DisplaySnapshot
}

// New creates an empty pipe.
func New() *Pipe {
	return &Pipe{slot: make(chan model.DisplaySnapshot, 1)}
}

// Publish puts a snapshot into the slot without blocking. If a stale
// snapshot is still waiting it is discarded first; the newest data
// always wins.
func (p *Pipe) Publish(s model.DisplaySnapshot) {
	for {
		select {
		case p.slot <- s:
			return
		default:
		}
		select {
		case <-p.slot:
			// Evicted the stale snapshot; retry the send. The retry
			// loop covers the race where the consumer drained the slot
			// between the two selects.
		default:
		}
	}
}

// Poll takes the pending snapshot if one is waiting. It never blocks;
// ok=false means the slot was empty and the caller keeps rendering its
// previous state.
func (p *Pipe) Poll() (model.DisplaySnapshot, bool) {
	select {
	case s := <-p.slot:
		return s, true
	default:
		return model.DisplaySnapshot{}, false
	}
}
