package querier

import "testing"

func TestRebind(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                                   "SELECT 1",
		"SELECT * FROM t WHERE a = $1 AND b = $2":    "SELECT * FROM t WHERE a = ?1 AND b = ?2",
		"UPDATE t SET a = $2 WHERE id = $1":          "UPDATE t SET a = ?2 WHERE id = ?1",
		"SELECT '$1' FROM t WHERE a = $1":            "SELECT '$1' FROM t WHERE a = ?1",
		"INSERT INTO t VALUES ($1, $10, $1)":         "INSERT INTO t VALUES (?1, ?10, ?1)",
		"SELECT price$ FROM t":                       "SELECT price$ FROM t",
	}
	for in, want := range cases {
		if got := Rebind(in); got != want {
			t.Fatalf("Rebind(%q) = %q, want %q", in, got, want)
		}
	}
}
