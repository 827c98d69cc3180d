package access

import (
	"context"
	"fmt"
	"testing"

	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

func BenchmarkAfterCommit(b *testing.B) {
	ctx := context.Background()
	photoIDs := make([]string, 100)
	for i := range photoIDs {
		photoIDs[i] = fmt.Sprintf("img%d", i)
	}
	e := newEngine(SyncerOptions{}, photoIDs...)
	a := album("R1")
	a.PhotoIDs = photoIDs
	for i := 0; i < 100; i++ {
		email := fmt.Sprintf("v%d@x.com", i)
		a.ViewerEmails = append(a.ViewerEmails, email)
		if i%2 == 0 {
			e.principals.add(users.Principal{ID: fmt.Sprintf("v%d", i), Email: email})
		}
	}
	e.albums.put(a)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.syncer.AfterCommit(ctx, a); err != nil {
			b.Fatal(err)
		}
	}
}
