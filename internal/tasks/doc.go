// Package tasks is the owner-scoped task and folder store.
//
// A Store is constructed once per process around a database handle. Every
// operation goes through a Client obtained with Store.ForOwner, which carries
// the authenticated caller's identity and filters every query by it:
//
//	client, err := store.ForOwner(ownerID)
//	if err != nil {
//		return err
//	}
//	res, err := client.CreateTask(ctx, tasks.CreateInput{Title: "Comprar pan"})
//
// Deletes are soft: the deleted_at column is set and the row disappears from
// every read. Failures are reported with the apperrors taxonomy so callers
// can map them to tool payloads or HTTP statuses.
package tasks
