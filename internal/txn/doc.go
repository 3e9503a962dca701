// Package txn groups store mutations into transactions that produce one
// version record each.
//
// Mutations are applied to the store as soon as they are staged. Commit
// only records what was touched. When recording fails the files stay as
// they are and the transaction stays open, so the caller can retry Commit
// once the versioning backend is reachable again.
//
// # Usage
//
//	tx := m.Begin()
//	if _, err := m.Stage(ctx, tx, txn.Write{Path: p, Plaintext: secret}); err != nil {
//		m.Abort(tx)
//		return err
//	}
//	rec, err := m.Commit(ctx, tx, "Add given password for "+p.String()+" to store.")
package txn
