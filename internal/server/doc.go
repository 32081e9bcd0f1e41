// Package server は、TCP接続の受け付けとワーカーによるリクエスト処理を管理します。
//
// このパッケージは、リッスンソケットの管理、同時処理数の制限、
// 管理用HTTPエンドポイントの提供を担当します。
//
// 責務:
//   - 接続の受け付けとワーカーへの割り当て
//   - 1接続1リクエストの処理と確実なクローズ
//   - 稼働状況のカウンタ
//   - 管理用HTTP（/health, /api/status）
//
// 仕様:
//   - ワーカー数は max_threads でsemaphoreにより制限する
//   - 空きワーカーを確保してから Accept する（全ワーカーが処理中の間、接続はOSのキューで待つ）
//   - ワーカー内のエラーとパニックは受け付けループに影響しない
//   - グレースフルシャットダウンに対応
package server
