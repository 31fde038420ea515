// Package crud implements the CRUD benchmark load: a fixed sequence of insert, update,
// read, navigation and delete operations on the A/B schema of the model package.
//
// Operation order (nA = countA, nB = countB):
//
//	insA, insB                  insert nA As and nB Bs, attributes set from the id
//	setAByPK, setBByPK          update all attributes to -id
//	getAByPK, getBByPK          read and verify -id
//	setVarbin<L>, getVarbin<L>  for L = 1, 10, 100 ... up to the varbinary limit
//	clearVarbin
//	setVarchar<L>, getVarchar<L>
//	clearVarchar
//	setBToA                     relate B bid to A ((bid-1) mod nA) + 1
//	navBToA                     load the A of every B
//	navAToB                     load the Bs of every A through the B.aid index
//	nullBToA                    drop all relations
//	delBByPK, delAByPK
//	reinsA, reinsB
//	delAllB, delAllA
//
// Every read verifies what the preceding write stored, a mismatch is a *VerifyError
// and aborts the run. Excluding a write operation therefore makes the read that
// depends on it fail.
package crud
