package sqlinline

const QListScenes = `--sql 1f2f7a9e-83cf-4a41-9e55-20b4cf9b6a01
select id, position, image_prompt, video_prompt, duration_seconds,
       coalesce(image_url, ''), coalesce(image_id_base, ''), coalesce(image_remote_url, ''),
       coalesce(video_url, ''), created_at, updated_at
from scenes
order by position asc;
`

const QGetScene = `--sql 5b7f1c44-91a2-4d8e-bb36-70e24d1f9c02
select id, position, image_prompt, video_prompt, duration_seconds,
       coalesce(image_url, ''), coalesce(image_id_base, ''), coalesce(image_remote_url, ''),
       coalesce(video_url, ''), created_at, updated_at
from scenes
where id = $1::uuid
limit 1;
`

const QUpsertScene = `--sql 9c0dd2b1-6a3f-4f7e-8a15-4b9e0c2d7a03
insert into scenes (id, position, image_prompt, video_prompt, duration_seconds,
                    image_url, image_id_base, image_remote_url, video_url, created_at, updated_at)
values ($1::uuid, $2::int, $3::text, $4::text, $5::int,
        nullif($6::text, ''), nullif($7::text, ''), nullif($8::text, ''), nullif($9::text, ''), now(), now())
on conflict (id) do update set
    position = excluded.position,
    image_prompt = excluded.image_prompt,
    video_prompt = excluded.video_prompt,
    duration_seconds = excluded.duration_seconds,
    image_url = excluded.image_url,
    image_id_base = excluded.image_id_base,
    image_remote_url = excluded.image_remote_url,
    video_url = excluded.video_url,
    updated_at = now();
`

const QDeleteScene = `--sql 3e6a8d90-2c47-4b11-9f83-6d5a1e4b8c04
delete from scenes
where id = $1::uuid;
`

const QDeleteAllScenes = `--sql 7a4b2c1d-9e60-4f35-8b72-0c3d5e6f9a05
delete from scenes;
`
