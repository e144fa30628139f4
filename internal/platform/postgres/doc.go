// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores accept a store.DBTX so the same implementation
// serves both direct connections and transactions, and all database
// errors are translated to store sentinel errors via MapError so no
// driver details leak past this package.
package postgres
