package facts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/mdx-framework/mediator/facts"
)

func orderMsg() *facts.MessageType {
	return &facts.MessageType{Name: "app.OrderCreated"}
}

func TestBuildMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("корректное middleware со всеми фазами", func(t *testing.T) {
		t.Parallel()

		desc, diags := facts.BuildMiddleware(facts.RawMiddleware{
			OwnerType: "app.AuditMiddleware",
			Lifetime:  facts.LifetimeNone,
			Order:     5,
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseBefore, Name: "Before", Message: orderMsg()},
				{Phase: facts.PhaseAfter, Name: "After", Message: orderMsg()},
				{Phase: facts.PhaseFinally, Name: "Finally", Message: orderMsg()},
			},
		})

		require.Empty(t, diags)
		require.NotNil(t, desc)
		assert.Equal(t, "Before", desc.Before.Name)
		assert.Equal(t, "After", desc.After.Name)
		assert.Equal(t, "Finally", desc.Finally.Name)
		assert.Nil(t, desc.Execute)
		assert.False(t, desc.IsStatic)
	})

	t.Run("дубликат фазы исключает middleware целиком", func(t *testing.T) {
		t.Parallel()

		desc, diags := facts.BuildMiddleware(facts.RawMiddleware{
			OwnerType: "app.DoubleBeforeMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseBefore, Name: "BeforeA", Message: orderMsg()},
				{Phase: facts.PhaseBefore, Name: "BeforeB", Message: orderMsg()},
			},
		})

		assert.Nil(t, desc, "некорректное middleware не должно применяться наполовину")
		require.Len(t, diags, 1)
		assert.Equal(t, facts.CodeDuplicatePhase, diags[0].Code)
		assert.Equal(t, facts.SeverityError, diags[0].Severity)
	})

	t.Run("смешение статических и экземплярных методов", func(t *testing.T) {
		t.Parallel()

		desc, diags := facts.BuildMiddleware(facts.RawMiddleware{
			OwnerType: "app.MixedMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseBefore, Name: "Before", IsStatic: true, Message: orderMsg()},
				{Phase: facts.PhaseAfter, Name: "After", Message: orderMsg()},
			},
		})

		assert.Nil(t, desc)
		require.Len(t, diags, 1)
		assert.Equal(t, facts.CodeMixedStaticInstance, diags[0].Code)
	})

	t.Run("разные типы сообщений у методов", func(t *testing.T) {
		t.Parallel()

		desc, diags := facts.BuildMiddleware(facts.RawMiddleware{
			OwnerType: "app.ConfusedMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseBefore, Name: "Before", Message: orderMsg()},
				{Phase: facts.PhaseAfter, Name: "After", Message: &facts.MessageType{Name: "app.Other"}},
			},
		})

		assert.Nil(t, desc)
		require.Len(t, diags, 1)
		assert.Equal(t, facts.CodeInconsistentMessage, diags[0].Code)
	})

	t.Run("универсальный тип сообщения согласован сам с собой", func(t *testing.T) {
		t.Parallel()

		desc, diags := facts.BuildMiddleware(facts.RawMiddleware{
			OwnerType: "app.GlobalMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseBefore, Name: "Before"},
				{Phase: facts.PhaseFinally, Name: "Finally"},
			},
		})

		require.Empty(t, diags)
		require.NotNil(t, desc)
		assert.True(t, desc.Message.IsUniversal())
	})

	t.Run("полностью статическое middleware", func(t *testing.T) {
		t.Parallel()

		desc, diags := facts.BuildMiddleware(facts.RawMiddleware{
			OwnerType: "app.StaticMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseExecute, Name: "Execute", IsStatic: true, Message: orderMsg()},
			},
		})

		require.Empty(t, diags)
		require.NotNil(t, desc)
		assert.True(t, desc.IsStatic)
		assert.Equal(t, "Execute", desc.Execute.Name)
	})
}

func TestValidateMiddleware(t *testing.T) {
	t.Parallel()

	valid, diags := facts.ValidateMiddleware([]facts.RawMiddleware{
		{
			OwnerType: "app.GoodMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseBefore, Name: "Before", Message: orderMsg()},
			},
		},
		{
			OwnerType: "app.BadMiddleware",
			Methods: []facts.MiddlewareMethod{
				{Phase: facts.PhaseAfter, Name: "AfterA", Message: orderMsg()},
				{Phase: facts.PhaseAfter, Name: "AfterB", Message: orderMsg()},
			},
		},
	})

	require.Len(t, valid, 1, "некорректное middleware должно быть исключено")
	assert.Equal(t, "app.GoodMiddleware", valid[0].OwnerType)
	assert.True(t, facts.HasErrors(diags))
}

func TestDiscoveryPredicates(t *testing.T) {
	t.Parallel()

	cfg := facts.DefaultConfig()

	t.Run("соглашение об именовании", func(t *testing.T) {
		t.Parallel()

		assert.True(t, facts.IsHandlerCandidate(facts.Candidate{TypeName: "app.OrderHandler"}, cfg))
		assert.False(t, facts.IsHandlerCandidate(facts.Candidate{TypeName: "app.OrderService"}, cfg))
		assert.True(t, facts.IsMiddlewareCandidate(facts.Candidate{TypeName: "app.AuditMiddleware"}, cfg))
	})

	t.Run("отключение соглашения не отключает явные объявления", func(t *testing.T) {
		t.Parallel()

		noConv := cfg
		noConv.ConventionDiscovery = false

		assert.False(t, facts.IsHandlerCandidate(facts.Candidate{TypeName: "app.OrderHandler"}, noConv))
		assert.True(t, facts.IsHandlerCandidate(facts.Candidate{TypeName: "app.OrderService", ExplicitHandler: true}, noConv))
		assert.True(t, facts.IsHandlerCandidate(facts.Candidate{TypeName: "app.OrderService", ImplementsMarker: true}, noConv))
		assert.True(t, facts.IsMiddlewareCandidate(facts.Candidate{TypeName: "app.Plain", ExplicitMiddleware: true}, noConv))
	})

	t.Run("методы по соглашению", func(t *testing.T) {
		t.Parallel()

		assert.True(t, facts.IsHandlerMethod("Handle"))
		assert.True(t, facts.IsHandlerMethod("HandleAsync"))
		assert.False(t, facts.IsHandlerMethod("Process"))
	})
}
