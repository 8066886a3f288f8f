package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/vibepin/vibepin/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	foundReportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FoundReport",
		Fields: graphql.Fields{
			"item_type":     &graphql.Field{Type: graphql.String},
			"item_class":    &graphql.Field{Type: graphql.String},
			"date":          &graphql.Field{Type: graphql.DateTime},
			"disposition":   &graphql.Field{Type: graphql.String},
			"business_type": &graphql.Field{Type: graphql.String},
		},
	})

	postType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.Fields{
			"id":                   &graphql.Field{Type: graphql.String},
			"category":             &graphql.Field{Type: graphql.String},
			"content":              &graphql.Field{Type: graphql.String},
			"found_data":           &graphql.Field{Type: foundReportType},
			"location":             &graphql.Field{Type: geoPointType},
			"location_label":       &graphql.Field{Type: graphql.String},
			"location_precision_m": &graphql.Field{Type: graphql.Int},
			"status":               &graphql.Field{Type: graphql.String},
			"author_alias":         &graphql.Field{Type: graphql.String},
			"avatar_seed":          &graphql.Field{Type: graphql.String},
			"created_at":           &graphql.Field{Type: graphql.DateTime},
			"distance":             &graphql.Field{Type: graphql.Float},
		},
	})

	parseCategories := func(raw interface{}) []domain.Category {
		list, ok := raw.([]interface{})
		if !ok {
			return nil
		}
		var cats []domain.Category
		for _, v := range list {
			if s, ok := v.(string); ok {
				if cat, ok := domain.ParseCategory(s); ok {
					cats = append(cats, cat)
				}
			}
		}
		return cats
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"recentPosts": &graphql.Field{
				Type:        graphql.NewList(postType),
				Description: "Newest published posts, optionally filtered by category",
				Args: graphql.FieldConfigArgument{
					"categories": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cats := parseCategories(p.Args["categories"])
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					return deps.Feed.Recent(p.Context, cats, offset, limit)
				},
			},
			"postsNearby": &graphql.Field{
				Type:        graphql.NewList(postType),
				Description: "Published posts around a point, closest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lng := p.Args["lng"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Feed.Nearby(p.Context, lat, lng, radius, limit)
				},
			},
			"post": &graphql.Field{
				Type:        postType,
				Description: "Get a post by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					post, err := deps.Feed.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					if post.IsDeleted {
						return nil, nil
					}
					return post, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
