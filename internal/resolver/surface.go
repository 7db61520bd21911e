package resolver

import (
	"github.com/graphql-go/graphql"

	"modelql/internal/entityschema"
	"modelql/internal/naming"
	"modelql/internal/planner"
	"modelql/internal/qerr"
	"modelql/internal/scalars"
	"modelql/internal/selection"
)

// Surface derives the GraphQL schema for an engine: for every entity a
// <name>_item and <name>_list query plus <name>_create, <name>_update, and
// <name>_delete mutations.
type Surface struct {
	engine  *Engine
	deriver *selection.Deriver

	types          map[string]*graphql.Object
	jsonScalar     *graphql.Scalar
	dateTimeScalar *graphql.Scalar
	uuidScalar     *graphql.Scalar
	filterInput    *graphql.InputObject
}

// NewSurface creates a schema builder for the engine.
func NewSurface(engine *Engine) *Surface {
	s := &Surface{
		engine:         engine,
		types:          make(map[string]*graphql.Object),
		jsonScalar:     scalars.JSON(),
		dateTimeScalar: scalars.DateTime(),
		uuidScalar:     scalars.UUID(),
	}
	s.filterInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: naming.FilterItemTypeName,
		Fields: graphql.InputObjectConfigFieldMap{
			"path": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"op":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"not":  &graphql.InputObjectFieldConfig{Type: graphql.Boolean, DefaultValue: false},
			"value": &graphql.InputObjectFieldConfig{
				Type: s.jsonScalar,
			},
		},
	})

	opts := make([]selection.Option, 0)
	for _, entity := range engine.Schema().Entities() {
		opts = append(opts, selection.WithListItemsField(naming.ListField(entity.Name), "items"))
	}
	s.deriver = selection.NewDeriver(opts...)
	return s
}

// BuildSchema assembles the executable schema.
func (s *Surface) BuildSchema() (graphql.Schema, error) {
	entities := s.engine.Schema().Entities()

	typeNames := make(map[string]string, len(entities))
	for _, entity := range entities {
		typeName := naming.TypeName(entity.Name)
		if other, dup := typeNames[typeName]; dup {
			return graphql.Schema{}, qerr.Schemaf("entities %q and %q both map to GraphQL type %q", other, entity.Name, typeName)
		}
		typeNames[typeName] = entity.Name
	}

	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}
	for _, entity := range entities {
		s.addQueryFields(queryFields, entity)
		s.addMutationFields(mutationFields, entity)
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Mutation",
			Fields: mutationFields,
		}),
	})
}

func (s *Surface) addQueryFields(fields graphql.Fields, entity *entityschema.Entity) {
	entityType := s.objectType(entity)
	pkName := entity.PrimaryKey.Name

	fields[naming.ItemField(entity.Name)] = &graphql.Field{
		Type: entityType,
		Args: graphql.FieldConfigArgument{
			pkName: &graphql.ArgumentConfig{Type: graphql.NewNonNull(s.scalarType(entity.PrimaryKey.Kind))},
		},
		Resolve: s.makeItemResolver(entity),
	}

	listType := graphql.NewObject(graphql.ObjectConfig{
		Name: naming.ListResultTypeName(entity.Name),
		Fields: graphql.Fields{
			"items": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(entityType)))},
			"total": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})
	fields[naming.ListField(entity.Name)] = &graphql.Field{
		Type: graphql.NewNonNull(listType),
		Args: graphql.FieldConfigArgument{
			"filter": &graphql.ArgumentConfig{
				Type: graphql.NewList(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(s.filterInput)))),
			},
			"sort":     &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
			"page":     &graphql.ArgumentConfig{Type: graphql.Int},
			"per_page": &graphql.ArgumentConfig{Type: graphql.Int},
		},
		Resolve: s.makeListResolver(entity),
	}
}

func (s *Surface) addMutationFields(fields graphql.Fields, entity *entityschema.Entity) {
	entityType := s.objectType(entity)
	pkName := entity.PrimaryKey.Name
	pkType := s.scalarType(entity.PrimaryKey.Kind)

	createArgs := graphql.FieldConfigArgument{}
	updateArgs := graphql.FieldConfigArgument{
		pkName: &graphql.ArgumentConfig{Type: graphql.NewNonNull(pkType)},
	}
	for _, col := range entity.Columns {
		argType := s.scalarType(col.Kind)
		if !col.Nullable && !col.HasDefault {
			createArgs[col.Name] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(argType)}
		} else {
			createArgs[col.Name] = &graphql.ArgumentConfig{Type: argType}
		}
		updateArgs[col.Name] = &graphql.ArgumentConfig{Type: argType}
	}
	for _, rel := range entity.Relationships {
		targetPK := s.scalarType(rel.Target.PrimaryKey.Kind)
		if rel.ToMany {
			listOfPK := graphql.NewList(graphql.NewNonNull(targetPK))
			createArgs[rel.Name] = &graphql.ArgumentConfig{Type: listOfPK}
			updateArgs[rel.Name] = &graphql.ArgumentConfig{Type: listOfPK}
			continue
		}
		if rel.Nullable {
			createArgs[rel.Name] = &graphql.ArgumentConfig{Type: targetPK}
		} else {
			createArgs[rel.Name] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(targetPK)}
		}
		updateArgs[rel.Name] = &graphql.ArgumentConfig{Type: targetPK}
	}

	fields[naming.CreateField(entity.Name)] = &graphql.Field{
		Type:    graphql.NewNonNull(entityType),
		Args:    createArgs,
		Resolve: s.makeCreateResolver(entity),
	}
	fields[naming.UpdateField(entity.Name)] = &graphql.Field{
		Type:    graphql.NewNonNull(entityType),
		Args:    updateArgs,
		Resolve: s.makeUpdateResolver(entity),
	}
	fields[naming.DeleteField(entity.Name)] = &graphql.Field{
		Type: graphql.NewNonNull(graphql.Boolean),
		Args: graphql.FieldConfigArgument{
			pkName: &graphql.ArgumentConfig{Type: graphql.NewNonNull(pkType)},
		},
		Resolve: s.makeDeleteResolver(entity),
	}
}

// objectType builds the GraphQL object for an entity. Fields are built
// lazily so mutually referential relationships resolve.
func (s *Surface) objectType(entity *entityschema.Entity) *graphql.Object {
	typeName := naming.TypeName(entity.Name)
	if cached, ok := s.types[typeName]; ok {
		return cached
	}

	objType := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return s.entityFields(entity)
		}),
	})
	s.types[typeName] = objType
	return objType
}

func (s *Surface) entityFields(entity *entityschema.Entity) graphql.Fields {
	fields := graphql.Fields{
		entity.PrimaryKey.Name: &graphql.Field{
			Type: graphql.NewNonNull(s.scalarType(entity.PrimaryKey.Kind)),
		},
	}
	for _, col := range entity.Columns {
		fieldType := graphql.Output(s.scalarType(col.Kind))
		if !col.Nullable {
			fieldType = graphql.NewNonNull(fieldType)
		}
		fields[col.Name] = &graphql.Field{Type: fieldType}
	}
	for _, rel := range entity.Relationships {
		targetType := s.objectType(rel.Target)
		if rel.ToMany {
			fields[rel.Name] = &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(targetType))),
			}
			continue
		}
		fieldType := graphql.Output(targetType)
		if !rel.Nullable {
			fieldType = graphql.NewNonNull(fieldType)
		}
		fields[rel.Name] = &graphql.Field{Type: fieldType}
	}
	return fields
}

func (s *Surface) scalarType(kind entityschema.ScalarKind) *graphql.Scalar {
	switch kind {
	case entityschema.KindInt:
		return graphql.Int
	case entityschema.KindFloat:
		return graphql.Float
	case entityschema.KindBool:
		return graphql.Boolean
	case entityschema.KindDateTime:
		return s.dateTimeScalar
	case entityschema.KindUUID:
		return s.uuidScalar
	default:
		return graphql.String
	}
}

func (s *Surface) makeItemResolver(entity *entityschema.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		sess, ok := SessionFrom(p.Context)
		if !ok {
			return nil, qerr.Configurationf("query executed without a database session")
		}
		tree, err := s.deriver.Derive(p.Info.FieldASTs, p.Info.Fragments)
		if err != nil {
			return nil, err
		}
		return s.engine.Item(p.Context, sess, entity, p.Args[entity.PrimaryKey.Name], tree)
	}
}

func (s *Surface) makeListResolver(entity *entityschema.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		sess, ok := SessionFrom(p.Context)
		if !ok {
			return nil, qerr.Configurationf("query executed without a database session")
		}
		tree, err := s.deriver.Derive(p.Info.FieldASTs, p.Info.Fragments)
		if err != nil {
			return nil, err
		}
		params, err := listParamsFromArgs(p.Args)
		if err != nil {
			return nil, err
		}

		result, err := s.engine.List(p.Context, sess, entity, params, tree)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"items": result.Items,
			"total": result.Total,
		}, nil
	}
}

func (s *Surface) makeCreateResolver(entity *entityschema.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		tc, ok := TxContextFrom(p.Context)
		if !ok {
			return nil, qerr.Configurationf("mutation executed without a transaction context")
		}
		tree, err := s.deriver.Derive(p.Info.FieldASTs, p.Info.Fragments)
		if err != nil {
			return nil, err
		}
		row, err := s.engine.Create(p.Context, tc.Tx(), entity, p.Args, tree)
		if err != nil {
			tc.MarkError()
			return nil, err
		}
		return row, nil
	}
}

func (s *Surface) makeUpdateResolver(entity *entityschema.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		tc, ok := TxContextFrom(p.Context)
		if !ok {
			return nil, qerr.Configurationf("mutation executed without a transaction context")
		}
		tree, err := s.deriver.Derive(p.Info.FieldASTs, p.Info.Fragments)
		if err != nil {
			return nil, err
		}

		pkName := entity.PrimaryKey.Name
		pkValue := p.Args[pkName]
		args := make(map[string]interface{}, len(p.Args))
		for name, value := range p.Args {
			if name == pkName {
				continue
			}
			args[name] = value
		}

		row, err := s.engine.Update(p.Context, tc.Tx(), entity, pkValue, args, tree)
		if err != nil {
			tc.MarkError()
			return nil, err
		}
		return row, nil
	}
}

func (s *Surface) makeDeleteResolver(entity *entityschema.Entity) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		tc, ok := TxContextFrom(p.Context)
		if !ok {
			return nil, qerr.Configurationf("mutation executed without a transaction context")
		}
		deleted, err := s.engine.Delete(p.Context, tc.Tx(), entity, p.Args[entity.PrimaryKey.Name])
		if err != nil {
			tc.MarkError()
			return nil, err
		}
		return deleted, nil
	}
}

// listParamsFromArgs converts the coerced GraphQL arguments of a list field.
func listParamsFromArgs(args map[string]interface{}) (ListParams, error) {
	params := ListParams{}

	if raw, ok := args["filter"]; ok && raw != nil {
		groups, err := filterGroups(raw)
		if err != nil {
			return ListParams{}, err
		}
		params.Filter = groups
	}
	if raw, ok := args["sort"]; ok && raw != nil {
		items, ok := raw.([]interface{})
		if !ok {
			return ListParams{}, qerr.Schemaf("sort must be a list of strings")
		}
		specs := make([]string, 0, len(items))
		for _, item := range items {
			str, ok := item.(string)
			if !ok {
				return ListParams{}, qerr.Schemaf("sort must be a list of strings")
			}
			specs = append(specs, str)
		}
		params.Sort = planner.ParseSort(specs)
	}
	if page, ok := args["page"].(int); ok {
		params.Page = page
	}
	if perPage, ok := args["per_page"].(int); ok {
		params.PerPage = perPage
	}
	return params, nil
}

func filterGroups(raw interface{}) ([]planner.Group, error) {
	rawGroups, ok := raw.([]interface{})
	if !ok {
		return nil, qerr.Schemaf("filter must be a list of rule groups")
	}
	groups := make([]planner.Group, 0, len(rawGroups))
	for _, rawGroup := range rawGroups {
		rawRules, ok := rawGroup.([]interface{})
		if !ok {
			return nil, qerr.Schemaf("filter groups must be lists of rules")
		}
		group := make(planner.Group, 0, len(rawRules))
		for _, rawRule := range rawRules {
			ruleMap, ok := rawRule.(map[string]interface{})
			if !ok {
				return nil, qerr.Schemaf("filter rules must be objects")
			}
			rule := planner.Rule{}
			if rule.Path, ok = ruleMap["path"].(string); !ok {
				return nil, qerr.Schemaf("filter rule path must be a string")
			}
			if rule.Op, ok = ruleMap["op"].(string); !ok {
				return nil, qerr.Schemaf("filter rule op must be a string")
			}
			if not, ok := ruleMap["not"].(bool); ok {
				rule.Not = not
			}
			rule.Value = ruleMap["value"]
			group = append(group, rule)
		}
		groups = append(groups, group)
	}
	return groups, nil
}
