package repository

import "testing"

func TestMemoryRepositories(t *testing.T) {
	runContract(t, NewMemoryRepositories())
}
