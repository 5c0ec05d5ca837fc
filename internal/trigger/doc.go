// Package trigger содержит приём и сопоставление событий исходного кода.
//
// Включает:
//   - event.go   — модель события (push, tag, pull_request, manual)
//   - matcher.go — сопоставление события с правилами триггеров pipelines
//
// Событие приходит через webhook API. Matcher находит активные pipelines,
// чьи правила (on) подходят под событие, и готовит для каждого данные
// будущего run: метаданные триггера, inputs и ключ идемпотентности.
//
// Для tag событий до создания run выполняется проверка формата версии:
// тег, не соответствующий MAJOR.MINOR.PATCH с опциональным суффиксом
// a/b/rc, отклоняется с сообщением, и run не создаётся.
package trigger
