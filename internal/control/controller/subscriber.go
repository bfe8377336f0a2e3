package controller

import "github.com/cuongbtq/mission-control/internal/control/domain"

// Subscriber receives lifecycle notifications. Callbacks run on the
// controller's lifecycle goroutine in transition order and must not call
// Submit or Teardown on the same controller.
type Subscriber interface {
	// StateChanged fires on every transition.
	StateChanged(domain.Snapshot)
	// Completed fires exactly once per job on entering completed, after StateChanged.
	Completed(domain.Snapshot)
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil funcs are skipped.
type SubscriberFuncs struct {
	OnStateChanged func(domain.Snapshot)
	OnCompleted    func(domain.Snapshot)
}

func (f SubscriberFuncs) StateChanged(s domain.Snapshot) {
	if f.OnStateChanged != nil {
		f.OnStateChanged(s)
	}
}

func (f SubscriberFuncs) Completed(s domain.Snapshot) {
	if f.OnCompleted != nil {
		f.OnCompleted(s)
	}
}

type fanout []Subscriber

// Fanout delivers every notification to each non-nil subscriber in order.
// Each subscriber gets its own copy of the snapshot.
func Fanout(subs ...Subscriber) Subscriber {
	out := make(fanout, 0, len(subs))
	for _, s := range subs {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fanout) StateChanged(s domain.Snapshot) {
	for _, sub := range f {
		sub.StateChanged(s.Clone())
	}
}

func (f fanout) Completed(s domain.Snapshot) {
	for _, sub := range f {
		sub.Completed(s.Clone())
	}
}
