package pipeline

import (
	"context"
	"fmt"
)

// Result — итог одного вызова конвейера: основное значение ответа и
// каскадируемые сообщения (для обработчиков, возвращающих кортеж).
type Result struct {
	// Value — основной ответ (нулевой слот кортежа либо единственное значение).
	Value any
	// Cascades — каскадируемые слоты кортежа в порядке объявления.
	// nil-слоты пропускаются при публикации.
	Cascades []any
}

// Invoker выполняет синтезированный конвейер для одного сообщения.
type Invoker func(ctx context.Context, msg any) (Result, error)

// Continuation — отложенное вычисление внутреннего конвейера, передаваемое
// Execute-оберткам. Обертка может не вызвать продолжение вовсе или вызвать
// его несколько раз; каждый вызов выполняет конвейер заново с чистым
// состоянием.
type Continuation func(ctx context.Context) (Result, error)

// BeforeOutcome — результат Before-фазы.
type BeforeOutcome struct {
	// ShortCircuit прерывает конвейер: обработчик и After-фазы
	// пропускаются, Finally-фазы выполняются.
	ShortCircuit bool
	// Value — терминальное значение при коротком замыкании.
	Value any
	// State — типизированный результат фазы, передаваемый в After и
	// Finally того же middleware.
	State any
}

// BeforeFunc — связанная Before-фаза middleware.
type BeforeFunc func(ctx context.Context, msg any) (BeforeOutcome, error)

// AfterFunc — связанная After-фаза middleware.
type AfterFunc func(ctx context.Context, msg any, value any, state any) error

// FinallyFunc — связанная Finally-фаза middleware. Получает значение
// результата (если есть) и ошибку (если конвейер завершился ошибкой).
type FinallyFunc func(ctx context.Context, msg any, value any, err error, state any)

// ExecuteFunc — связанная Execute-обертка middleware.
type ExecuteFunc func(ctx context.Context, msg any, next Continuation) (Result, error)

// HandlerFunc — связанный метод обработчика.
type HandlerFunc func(ctx context.Context, msg any) (Result, error)

// Unit — одно применимое middleware со связанными фазами, в порядке
// выполнения Before-фаз.
type Unit struct {
	ID      string
	Before  BeforeFunc
	After   AfterFunc
	Finally FinallyFunc
	Execute ExecuteFunc
}

// Compile превращает форму конвейера и связанные фазы в исполняемый
// инвокер. Гарантии:
//
//   - Before-фазы выполняются в порядке units, After и Finally — в
//     обратном (луковичная вложенность);
//   - Finally-фазы выполняются ровно один раз на вызов на любом пути:
//     нормальное завершение, короткое замыкание, ошибка, паника;
//   - короткое замыкание пропускает обработчик и After-фазы, а
//     терминальное значение приводится к объявленной форме возврата;
//   - обработчик вызывается ровно один раз между последней Before- и
//     первой After-фазой, кроме пути короткого замыкания;
//   - сигнал отмены передается обычным параметром во все фазы, никаких
//     внутренних тайм-аутов конвейер не синтезирует.
func Compile(shape Shape, units []Unit, handler HandlerFunc, opts ...Option) Invoker {
	cfg := newConfig(opts...)

	core := compileCore(shape, units, handler)

	// Execute-обертки: первая по порядку — внешняя, поэтому оборачиваем
	// с конца списка.
	inv := core
	for i := len(units) - 1; i >= 0; i-- {
		if units[i].Execute == nil {
			continue
		}
		exec := units[i].Execute
		next := inv
		inv = func(ctx context.Context, msg any) (Result, error) {
			return exec(ctx, msg, func(ctx context.Context) (Result, error) {
				return next(ctx, msg)
			})
		}
	}

	if cfg.logger != nil {
		inv = wrapLogging(inv, cfg.logger, cfg.messageName)
	}
	if cfg.tracerProvider != nil || cfg.meterProvider != nil {
		inv = wrapTelemetry(inv, cfg)
	}
	return inv
}

// compileCore строит внутренний конвейер: Before → обработчик → After,
// с коротким замыканием и Finally-фазами на каждом пути.
func compileCore(shape Shape, units []Unit, handler HandlerFunc) Invoker {
	return func(ctx context.Context, msg any) (res Result, err error) {
		// Состояние Before-фаз локально для вызова: между вызовами ничего
		// не разделяется.
		states := make([]any, len(units))

		finallyDone := false
		runFinally := func(value any, ferr error) {
			if finallyDone {
				return
			}
			finallyDone = true
			for i := len(units) - 1; i >= 0; i-- {
				if units[i].Finally != nil {
					units[i].Finally(ctx, msg, value, ferr, states[i])
				}
			}
		}

		// Паника проходит через те же Finally-фазы, что и обычное
		// завершение, и затем продолжает распространение.
		defer func() {
			if r := recover(); r != nil {
				runFinally(res.Value, fmt.Errorf("паника в конвейере: %v", r))
				panic(r)
			}
		}()

		shortCircuited := false
		for i := range units {
			if units[i].Before == nil {
				continue
			}
			out, berr := units[i].Before(ctx, msg)
			if berr != nil {
				runFinally(nil, berr)
				return Result{}, berr
			}
			states[i] = out.State
			if out.ShortCircuit {
				res = shortCircuitResult(shape, out.Value)
				shortCircuited = true
				break
			}
		}

		if !shortCircuited {
			res, err = handler(ctx, msg)
			if err != nil {
				runFinally(res.Value, err)
				return Result{}, err
			}

			for i := len(units) - 1; i >= 0; i-- {
				if units[i].After == nil {
					continue
				}
				if aerr := units[i].After(ctx, msg, res.Value, states[i]); aerr != nil {
					runFinally(res.Value, aerr)
					return Result{}, aerr
				}
			}
		}

		runFinally(res.Value, nil)
		return res, nil
	}
}

// shortCircuitResult приводит терминальное значение короткого замыкания к
// объявленной форме возврата обработчика: для кортежа заполняется только
// основной слот, каскадируемые остаются nil и при публикации пропускаются.
func shortCircuitResult(shape Shape, value any) Result {
	if shape.HasCascadingMessages {
		return Result{Value: value, Cascades: make([]any, shape.CascadeSlots)}
	}
	return Result{Value: value}
}
