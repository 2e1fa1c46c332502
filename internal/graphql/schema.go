// ABOUTME: GraphQL schema: the ask and askDetailed queries.
// ABOUTME: No mutations, no subscriptions; both fields are non-nullable.

package graphql

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/askbridge/askbridge/internal/ask"
)

// Asker answers prompts. *ask.Service satisfies it.
type Asker interface {
	Ask(ctx context.Context, prompt string) string
	AskDetailed(ctx context.Context, prompt string) ask.Result
}

// askPayload backs the AskPayload object type.
type askPayload struct {
	Content  string `json:"content"`
	Metadata string `json:"metadata"`
}

// NewSchema builds the query schema over an Asker. The ask field returns the
// plain answer string; askDetailed adds resolution metadata as a JSON string.
func NewSchema(svc Asker) (graphql.Schema, error) {
	promptArg := graphql.FieldConfigArgument{
		"prompt": &graphql.ArgumentConfig{
			Type:        graphql.NewNonNull(graphql.String),
			Description: "Natural-language request to route to a tool.",
		},
	}

	payloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AskPayload",
		Fields: graphql.Fields{
			"content": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "The answer text.",
			},
			"metadata": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Resolution metadata as a JSON string: intent, tool, confidence.",
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"ask": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Answer a natural-language prompt with the best-matching tool.",
				Args:        promptArg,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					prompt, _ := p.Args["prompt"].(string)
					return svc.Ask(p.Context, prompt), nil
				},
			},
			"askDetailed": &graphql.Field{
				Type:        graphql.NewNonNull(payloadType),
				Description: "Like ask, but reports how the answer was produced.",
				Args:        promptArg,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					prompt, _ := p.Args["prompt"].(string)
					result := svc.AskDetailed(p.Context, prompt)
					return askPayload{
						Content:  result.Content,
						Metadata: result.Metadata.JSON(),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
