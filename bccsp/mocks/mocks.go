/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/hyperledger/fabric-ecc/bccsp"
	"github.com/hyperledger/fabric-ecc/bccsp/cca"
	"github.com/hyperledger/fabric-ecc/bccsp/hw"
)

// Record is one operation seen by a Recorder.
type Record struct {
	Op    hw.Op
	Curve bccsp.CurveID
	Tier  hw.Tier
	Err   error
	Done  bool
}

// Recorder keeps every operation it observes.
type Recorder struct {
	mu      sync.Mutex
	records []*Record
}

func (r *Recorder) Start(op hw.Op, curve bccsp.CurveID) func(hw.Tier, error) {
	rec := &Record{Op: op, Curve: curve}
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	return func(tier hw.Tier, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		rec.Tier, rec.Err, rec.Done = tier, err, true
	}
}

// Records returns copies of the records so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = *rec
	}
	return out
}

// Last returns the most recent record.
func (r *Recorder) Last() Record {
	recs := r.Records()
	if len(recs) == 0 {
		return Record{}
	}
	return recs[len(recs)-1]
}

// Device is a cca.Device that hands every request to SendCPRBStub, or
// fails with SendCPRBErr when no stub is set.
type Device struct {
	SendCPRBStub func(*cca.Request) error
	SendCPRBErr  error

	mu       sync.Mutex
	requests []cca.Verb
}

func (d *Device) SendCPRB(r *cca.Request) error {
	d.mu.Lock()
	d.requests = append(d.requests, r.Verb)
	d.mu.Unlock()

	if d.SendCPRBStub != nil {
		return d.SendCPRBStub(r)
	}
	return d.SendCPRBErr
}

// Requests returns the verbs of the requests received.
func (d *Device) Requests() []cca.Verb {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]cca.Verb(nil), d.requests...)
}
