// Package testing provides a conformance test suite for store.IStore implementations.
//
// Usage:
//
//	func TestLocalStore(t *testing.T) {
//	    storetesting.RunStoreTests(t, "LocalStore", func(t testing.TB) store.IStore {
//	        s, err := lstore.NewLocalStore(factory)
//	        if err != nil {
//	            t.Fatalf("NewLocalStore failed: %v", err)
//	        }
//	        return s
//	    })
//	}
//
// Every test gets a fresh store from the factory and closes it when finished.
package testing
