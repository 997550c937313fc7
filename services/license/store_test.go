package license

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreEmptyDefaults(t *testing.T) {
	s := NewStore()

	require.Nil(t, s.Terms())
	require.Equal(t, TypeBasic, s.Get(FieldType))
	require.Equal(t, Limit{}, s.Get(FieldTotalUsers))
	require.Equal(t, false, s.Get(FieldAuditLogs))
	require.Equal(t, 0, s.Get(FieldAuditLogRetention))
}

func TestStoreComputedFieldDefaults(t *testing.T) {
	// Expiry and validity are evaluator questions; the store answers the
	// same default whether or not a snapshot is loaded.
	s := NewStore()

	require.Equal(t, false, s.Get(FieldIsExpired))
	require.Equal(t, false, s.Get(FieldValid))

	s.Replace(&Terms{Type: TypeEnterprise})
	require.Equal(t, false, s.Get(FieldIsExpired))
	require.Equal(t, false, s.Get(FieldValid))
}

func TestStoreReplace(t *testing.T) {
	s := NewStore()

	first := &Terms{Type: TypeTrial}
	s.Replace(first)
	require.Same(t, first, s.Terms())
	require.Equal(t, uint64(1), s.Generation())

	second := &Terms{Type: TypeEnterprise}
	second.Features.AuditLogs = true
	s.Replace(second)
	require.Same(t, second, s.Terms())
	require.Equal(t, uint64(2), s.Generation())
	require.Equal(t, true, s.Get(FieldAuditLogs))
}

func TestStoreConcurrentReaders(t *testing.T) {
	s := NewStore()
	s.Replace(&Terms{Type: TypeBasic})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				terms := s.Terms()
				require.NotNil(t, terms)
				require.NotEmpty(t, terms.Type)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		s.Replace(&Terms{Type: TypeEnterprise})
	}
	wg.Wait()
}
