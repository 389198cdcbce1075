package domain

// Service bundles the stores and the resolver over one document store.
type Service struct {
	Catalog  *CatalogStore
	Routines *RoutineStore
	Links    *LinkStore
	Workouts *WorkoutStore
	Resolver *Resolver
}

// NewService wires every store against ds with shared options.
func NewService(ds DocumentStore, opts ...Option) *Service {
	catalog := NewCatalogStore(ds, opts...)
	links := NewLinkStore(ds, opts...)
	routines := NewRoutineStore(ds, links, opts...)
	return &Service{
		Catalog:  catalog,
		Routines: routines,
		Links:    links,
		Workouts: NewWorkoutStore(ds, opts...),
		Resolver: NewResolver(routines, links, catalog),
	}
}
