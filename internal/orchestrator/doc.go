// Package orchestrator управляет выполнением runs.
//
// Orchestrator отвечает за:
//   - Получение новых runs из очереди RabbitMQ
//   - Парсинг pipeline spec и построение DAG
//   - Создание jobs для шагов без зависимостей
//   - Отслеживание завершения jobs
//   - Запуск следующих шагов когда зависимости удовлетворены
//   - Финализацию run (SUCCEEDED/FAILED)
//
// Orchestrator — это "мозг" системы, который координирует выполнение.
package orchestrator
