package sqlinline

const QListBoardAssets = `--sql 7d1e4c2a-5f90-46b3-8e27-91c0f3a6d205
select id, type, data_url, filename, locked, created_at
from board_assets
order by created_at asc;
`

const QUpsertBoardAsset = `--sql 2a9b6e71-4d38-4c05-b1f9-8e62d0c4a106
insert into board_assets (id, type, data_url, filename, locked, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::boolean, now())
on conflict (id) do update set
    type = excluded.type,
    data_url = excluded.data_url,
    filename = excluded.filename,
    locked = excluded.locked;
`

const QDeleteBoardAsset = `--sql 6c3f9a18-0e52-47dd-a8b4-2f71e9d5c307
delete from board_assets
where id = $1::uuid;
`
