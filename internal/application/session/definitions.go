package session

import (
	"github.com/xiebiao/bookstore-admin/internal/adapter"
	"github.com/xiebiao/bookstore-admin/internal/dashboard"
	"github.com/xiebiao/bookstore-admin/internal/domain/catalog"
	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

// Definition 一个可挂载的看板
type Definition struct {
	Config dashboard.Config
	Build  func(client adapter.Doer, cfg dashboard.Config, opts ...dashboard.Option) dashboard.Controller
}

func define[T catalog.Record](newService func(adapter.Doer) adapter.Service[T], cfg dashboard.Config) Definition {
	cfg.FormSchema = catalog.FormSchema(cfg.Entity)
	return Definition{
		Config: cfg,
		Build: func(client adapter.Doer, cfg dashboard.Config, opts ...dashboard.Option) dashboard.Controller {
			return dashboard.New(cfg, newService(client), opts...).Controller()
		},
	}
}

func allSearch() dashboard.SearchSet {
	return dashboard.NewSearchSet(dashboard.SearchAuto, dashboard.SearchSimple, dashboard.SearchAdvanced)
}

func autoOn() dashboard.SearchConfig {
	return dashboard.SearchConfig{Auto: dashboard.AutoSearchConfig{Enabled: true}}
}

func advanced(cfg dashboard.SearchConfig, fields ...string) dashboard.SearchConfig {
	cfg.Advanced = dashboard.AdvancedSearchConfig{Enabled: true, Fields: fields}
	return cfg
}

// Definitions 后台所有看板
func Definitions() map[string]Definition {
	return map[string]Definition{
		catalog.EntityBooks: define(adapter.Books, dashboard.Config{
			Entity: catalog.EntityBooks,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.FullCRUD(),
				Search: allSearch(),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "title", Direction: pagination.SortAsc}},
			Search: advanced(autoOn(), "title", "isbn", "authorId", "genreId", "publisherId", "isAvailable"),
		}),
		catalog.EntityAuthors: define(adapter.Authors, dashboard.Config{
			Entity: catalog.EntityAuthors,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.FullCRUD(),
				Search: allSearch(),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "lastName", Direction: pagination.SortAsc}},
			Search: advanced(autoOn(), "lastName", "firstName", "nationality", "isActive"),
		}),
		catalog.EntityGenres: define(adapter.Genres, dashboard.Config{
			Entity: catalog.EntityGenres,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.FullCRUD(),
				Search: dashboard.NewSearchSet(dashboard.SearchAuto, dashboard.SearchSimple),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "name", Direction: pagination.SortAsc}},
			Search: autoOn(),
		}),
		catalog.EntityPublishers: define(adapter.Publishers, dashboard.Config{
			Entity: catalog.EntityPublishers,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.FullCRUD(),
				Search: allSearch(),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "name", Direction: pagination.SortAsc}},
			Search: advanced(autoOn(), "name", "country", "isActive"),
		}),
		catalog.EntityUsers: define(adapter.Users, dashboard.Config{
			Entity: catalog.EntityUsers,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.FullCRUD(),
				Search: dashboard.NewSearchSet(dashboard.SearchSimple, dashboard.SearchAdvanced),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "username", Direction: pagination.SortAsc}},
			Search: advanced(dashboard.SearchConfig{}, "username", "email", "role", "isActive"),
		}),
		catalog.EntityInventoryMovements: define(adapter.InventoryMovements, dashboard.Config{
			Entity: catalog.EntityInventoryMovements,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.NewCRUDSet(dashboard.CapCreate, dashboard.CapRead),
				Search: dashboard.NewSearchSet(dashboard.SearchAuto, dashboard.SearchAdvanced),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "createdAt", Direction: pagination.SortDesc}},
			Search: advanced(autoOn(), "bookId", "movementType", "userId", "startDate", "endDate"),
		}),
		catalog.EntityAudit: define(adapter.Audit, dashboard.Config{
			Entity: catalog.EntityAudit,
			Capabilities: dashboard.Capabilities{
				CRUD:   dashboard.NewCRUDSet(dashboard.CapRead),
				Search: dashboard.NewSearchSet(dashboard.SearchSimple, dashboard.SearchAdvanced),
				Export: true,
			},
			Table:  dashboard.TableConfig{DefaultSort: dashboard.Sort{Field: "createdAt", Direction: pagination.SortDesc}},
			Search: advanced(dashboard.SearchConfig{}, "userId", "action", "entityType", "startDate", "endDate"),
		}),
	}
}
