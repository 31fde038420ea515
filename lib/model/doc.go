// Package model defines the entities of the CRUD benchmark and maps them onto a
// transactional key-value store.
//
// Schema:
//
//	A(id, cint, clong, cfloat, cdouble)
//	B(id, cint, clong, cfloat, cdouble, aid -> A.id, cvarbinary, cvarchar)
//
// Key Layout:
//
//	a/<id>              encoded A
//	b/<id>              encoded B
//	i/b.aid/<aid>/<bid> secondary index of B.aid, empty value
//
// Ids are written as 10 digit zero padded decimals, so scans return the entities in id order.
//
// The Session is the persistence context: it brackets the work in a store transaction
// and keeps an identity map (an LRU cache) of the loaded entities. Clearing the session
// forces the next read of every entity to go to the store, which is what the benchmark
// driver does between operations when the persistence context has to be cleared.
package model
