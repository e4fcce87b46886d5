// Package panel talks to the hosting provider's control-panel API.
// The provider itself is an external collaborator; workflows depend on
// the Client interface and the Find helper only.
package panel

import (
	"github.com/webship/webship/internal/errors"
)

// Kind enumerates the provisionable resource kinds. Each kind maps to
// named Client methods at compile time; there is no reflective dispatch.
type Kind int

const (
	KindApp Kind = iota
	KindDatabase
	KindDatabaseUser
	KindDomain
	KindWebsite
	KindCronJob
)

func (k Kind) String() string {
	switch k {
	case KindApp:
		return "app"
	case KindDatabase:
		return "database"
	case KindDatabaseUser:
		return "database user"
	case KindDomain:
		return "domain"
	case KindWebsite:
		return "website"
	case KindCronJob:
		return "cron job"
	}
	return "unknown"
}

// Resource is one control-panel record. Name carries the identifying
// field of every kind (the username for database users, the domain for
// domain records).
type Resource struct {
	Name       string
	Port       int
	Machine    string
	Subdomains []string
}

// Mount attaches an app to a URL path on a website record.
type Mount struct {
	App  string
	Path string
}

// Client is the control-panel API contract the workflows drive.
// Every call is a blocking round trip against the provider.
type Client interface {
	Login(user, password string) error

	ListApps() ([]Resource, error)
	CreateApp(name, appType string, autostart bool, extraInfo string) (Resource, error)
	DeleteApp(name string) error

	ListDatabases() ([]Resource, error)
	CreateDatabase(name, engine, password string) (Resource, error)
	DeleteDatabase(name, engine string) error

	ListDatabaseUsers() ([]Resource, error)
	DeleteDatabaseUser(name, engine string) error

	ListDomains() ([]Resource, error)
	CreateDomain(domain string, subdomains ...string) (Resource, error)
	DeleteDomain(domain string, subdomains ...string) error

	ListWebsites() ([]Resource, error)
	CreateWebsite(name, ip string, https bool, domains []string, mounts ...Mount) (Resource, error)
	DeleteWebsite(name, ip string) error

	CreateCronJob(line string) error
	DeleteCronJob(line string) error
}

// listers maps each listable kind to its client method.
var listers = map[Kind]func(Client) ([]Resource, error){
	KindApp:          Client.ListApps,
	KindDatabase:     Client.ListDatabases,
	KindDatabaseUser: Client.ListDatabaseUsers,
	KindDomain:       Client.ListDomains,
	KindWebsite:      Client.ListWebsites,
}

// Find checks for a resource by listing all records of its kind and
// scanning for a name match. Always a fresh remote query, never cached.
// For the domain kind with a non-empty subdomain, the subdomain must also
// be present in the record's subdomain set. Absence is (nil, false, nil),
// not an error.
func Find(c Client, kind Kind, name, subdomain string) (*Resource, bool, error) {
	list, ok := listers[kind]
	if !ok {
		return nil, false, errors.New(errors.ErrPanel,
			"Resource kind '"+kind.String()+"' cannot be listed",
			"Cron jobs are created and deleted by their full line, never queried")
	}

	records, err := list(c)
	if err != nil {
		return nil, false, err
	}

	for i := range records {
		if records[i].Name != name {
			continue
		}
		if kind == KindDomain && subdomain != "" {
			if !contains(records[i].Subdomains, subdomain) {
				return nil, false, nil
			}
		}
		return &records[i], true, nil
	}
	return nil, false, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
