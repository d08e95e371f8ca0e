/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
)

func writeDomainFile(t *testing.T, value string) string {
	path := filepath.Join(t.TempDir(), "ap_domain")
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDomainCachedAfterFirstRead(t *testing.T) {
	gt := NewGomegaWithT(t)

	path := writeDomainFile(t, "5\n")
	d := &DomainResolver{Path: path}
	gt.Expect(d.Cached()).To(BeFalse())
	gt.Expect(d.Domain()).To(Equal(uint16(5)))
	gt.Expect(d.Cached()).To(BeTrue())

	gt.Expect(os.WriteFile(path, []byte("7\n"), 0o644)).To(Succeed())
	gt.Expect(d.Domain()).To(Equal(uint16(5)))

	d.Reset()
	gt.Expect(d.Domain()).To(Equal(uint16(7)))
}

func TestDomainZeroIsCached(t *testing.T) {
	gt := NewGomegaWithT(t)

	path := writeDomainFile(t, "0")
	d := &DomainResolver{Path: path}
	gt.Expect(d.Domain()).To(Equal(uint16(0)))
	gt.Expect(os.Remove(path)).To(Succeed())
	gt.Expect(d.Domain()).To(Equal(uint16(0)))
}

func TestDomainFailuresAreNotCached(t *testing.T) {
	gt := NewGomegaWithT(t)

	path := filepath.Join(t.TempDir(), "ap_domain")
	d := &DomainResolver{Path: path}
	gt.Expect(d.Domain()).To(Equal(uint16(AnyDomain)))
	gt.Expect(d.Cached()).To(BeFalse())

	gt.Expect(os.WriteFile(path, []byte("garbage"), 0o644)).To(Succeed())
	gt.Expect(d.Domain()).To(Equal(uint16(AnyDomain)))
	gt.Expect(d.Cached()).To(BeFalse())

	gt.Expect(os.WriteFile(path, []byte("65535"), 0o644)).To(Succeed())
	gt.Expect(d.Domain()).To(Equal(uint16(AnyDomain)))
	gt.Expect(d.Cached()).To(BeFalse())

	gt.Expect(os.WriteFile(path, []byte(" 42 \n"), 0o644)).To(Succeed())
	gt.Expect(d.Domain()).To(Equal(uint16(42)))
	gt.Expect(d.Cached()).To(BeTrue())
}

func TestDomainConcurrentFirstUse(t *testing.T) {
	gt := NewGomegaWithT(t)

	d := &DomainResolver{Path: writeDomainFile(t, "11")}
	var wg sync.WaitGroup
	results := make([]uint16, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.Domain()
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		gt.Expect(r).To(Equal(uint16(11)))
	}
}

func TestRequestsCarryResolvedDomain(t *testing.T) {
	gt := NewGomegaWithT(t)

	b := &Builder{Domain: &DomainResolver{Path: filepath.Join(t.TempDir(), "missing")}}
	r, err := b.KeyGen(nistCurves[0])
	gt.Expect(err).NotTo(HaveOccurred())
	h, err := r.Header()
	gt.Expect(err).NotTo(HaveOccurred())
	gt.Expect(h.Domain).To(Equal(uint16(0xFFFF)))
}
