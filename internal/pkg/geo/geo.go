package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Reader resolves IPs to ISO country codes via a MaxMind database. A Reader
// without a database is a valid no-op.
type Reader struct {
	db *maxminddb.Reader
}

// Open opens a MaxMind .mmdb file. Returns a no-op Reader if path is empty.
func Open(path string) (*Reader, error) {
	if path == "" {
		return &Reader{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() {
	if r != nil && r.db != nil {
		r.db.Close()
	}
}

// Country returns the ISO country code for an IP, or "" when unknown.
func (r *Reader) Country(ipStr string) string {
	if r == nil || r.db == nil {
		return ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := r.db.Lookup(ip, &record); err != nil {
		return ""
	}
	return record.Country.ISOCode
}
