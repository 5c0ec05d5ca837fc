// Package engine содержит движок выполнения pipeline.
//
// Включает:
//   - parser.go   — валидация PipelineSpec (шаги, зависимости, триггеры)
//   - dag.go      — построение и обход DAG (directed acyclic graph)
//   - template.go — рендеринг Go templates ({{ .Inputs.x }}, {{ .Trigger.Tag }})
//
// Engine отвечает за понимание структуры pipeline и определение
// порядка выполнения шагов на основе их зависимостей.
package engine
